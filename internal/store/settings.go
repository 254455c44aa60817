package store

import (
	"database/sql"
	"fmt"

	"github.com/chorespec/chorespec/internal/model"
)

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(key string) (*model.Setting, error) {
	var setting model.Setting
	var desc sql.NullString
	err := s.db.QueryRow(
		`SELECT id, key, value, description FROM system_settings WHERE key = ?`, key,
	).Scan(&setting.ID, &setting.Key, &setting.Value, &desc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get setting: %w", err)
	}
	if desc.Valid {
		setting.Description = &desc.String
	}
	return &setting, nil
}

func (s *SettingsStore) Set(key, value string, description *string) (*model.Setting, error) {
	var desc sql.NullString
	if description != nil {
		desc = sql.NullString{String: *description, Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO system_settings (key, value, description) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value,
			description = COALESCE(excluded.description, system_settings.description)`,
		key, value, desc,
	)
	if err != nil {
		return nil, fmt.Errorf("set setting: %w", err)
	}
	return s.Get(key)
}
