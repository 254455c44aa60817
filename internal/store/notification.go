package store

import (
	"database/sql"
	"fmt"

	"github.com/chorespec/chorespec/internal/model"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func scanNotification(scanner interface{ Scan(...any) error }) (*model.Notification, error) {
	var n model.Notification
	var read int
	var data sql.NullString

	err := scanner.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &read, &data, &n.CreatedAt)
	if err != nil {
		return nil, err
	}

	n.Read = read != 0
	if data.Valid {
		n.Data = &data.String
	}
	return &n, nil
}

const notificationCols = `id, user_id, type, title, message, read, data, created_at`

func (s *NotificationStore) Create(userID int64, typ, title, message string, data *string) (*model.Notification, error) {
	var d sql.NullString
	if data != nil {
		d = sql.NullString{String: *data, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO notifications (user_id, type, title, message, data) VALUES (?, ?, ?, ?, ?)`,
		userID, typ, title, message, d,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+notificationCols+` FROM notifications WHERE id = ?`, id)
	return scanNotification(row)
}

func (s *NotificationStore) ListByUser(userID int64, unreadOnly bool, skip, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + notificationCols + ` FROM notifications WHERE user_id = ?`
	args := []any{userID}
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, skip)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

// MarkRead marks one notification read, scoped to its owner so one
// user cannot clear another's inbox.
func (s *NotificationStore) MarkRead(id, userID int64) (*model.Notification, error) {
	result, err := s.db.Exec(
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return nil, nil
	}

	row := s.db.QueryRow(`SELECT `+notificationCols+` FROM notifications WHERE id = ?`, id)
	return scanNotification(row)
}

func (s *NotificationStore) MarkAllRead(userID int64) error {
	_, err := s.db.Exec(`UPDATE notifications SET read = 1 WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}

func (s *NotificationStore) CountUnread(userID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}
