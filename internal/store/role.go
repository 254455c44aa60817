package store

import (
	"database/sql"
	"fmt"

	"github.com/chorespec/chorespec/internal/model"
)

type RoleStore struct {
	db *sql.DB
}

func NewRoleStore(db *sql.DB) *RoleStore {
	return &RoleStore{db: db}
}

func scanRole(scanner interface{ Scan(...any) error }) (*model.Role, error) {
	var r model.Role
	err := scanner.Scan(&r.ID, &r.Name, &r.MultiplierValue)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const roleCols = `id, name, multiplier_value`

func (s *RoleStore) Create(name string, multiplier float64) (*model.Role, error) {
	result, err := s.db.Exec(
		`INSERT INTO roles (name, multiplier_value) VALUES (?, ?)`,
		name, multiplier,
	)
	if err != nil {
		return nil, fmt.Errorf("insert role: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RoleStore) GetByID(id int64) (*model.Role, error) {
	row := s.db.QueryRow(`SELECT `+roleCols+` FROM roles WHERE id = ?`, id)
	r, err := scanRole(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}
	return r, nil
}

func (s *RoleStore) GetByName(name string) (*model.Role, error) {
	row := s.db.QueryRow(`SELECT `+roleCols+` FROM roles WHERE name = ?`, name)
	r, err := scanRole(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get role by name: %w", err)
	}
	return r, nil
}

func (s *RoleStore) List() ([]model.Role, error) {
	rows, err := s.db.Query(`SELECT ` + roleCols + ` FROM roles ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, *r)
	}
	return roles, rows.Err()
}

func (s *RoleStore) UpdateMultiplier(id int64, multiplier float64) (*model.Role, error) {
	_, err := s.db.Exec(`UPDATE roles SET multiplier_value = ? WHERE id = ?`, multiplier, id)
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	return s.GetByID(id)
}

// DeleteReassigning deletes a role after moving its users to another
// role and detaching its tasks. Runs as one transaction so a failed
// reassignment never leaves orphaned users. Returns the number of
// users moved and tasks detached.
func (s *RoleStore) DeleteReassigning(id int64, reassignTo *int64) (usersMoved, tasksDetached int, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if reassignTo != nil {
		res, err := tx.Exec(`UPDATE users SET role_id = ? WHERE role_id = ?`, *reassignTo, id)
		if err != nil {
			return 0, 0, fmt.Errorf("reassign users: %w", err)
		}
		moved, _ := res.RowsAffected()
		usersMoved = int(moved)
	}

	res, err := tx.Exec(`UPDATE tasks SET assigned_role_id = NULL WHERE assigned_role_id = ?`, id)
	if err != nil {
		return 0, 0, fmt.Errorf("detach tasks: %w", err)
	}
	detached, _ := res.RowsAffected()
	tasksDetached = int(detached)

	if _, err := tx.Exec(`DELETE FROM roles WHERE id = ?`, id); err != nil {
		return 0, 0, fmt.Errorf("delete role: %w", err)
	}
	return usersMoved, tasksDetached, tx.Commit()
}

// CountUsers returns how many users currently hold the role.
func (s *RoleStore) CountUsers(id int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE role_id = ?`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count role users: %w", err)
	}
	return count, nil
}
