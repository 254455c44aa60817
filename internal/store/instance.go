package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/chorespec/chorespec/internal/model"
)

type InstanceStore struct {
	db *sql.DB
}

func NewInstanceStore(db *sql.DB) *InstanceStore {
	return &InstanceStore{db: db}
}

func scanInstance(scanner interface{ Scan(...any) error }) (*model.TaskInstance, error) {
	var ti model.TaskInstance
	var completedAt sql.NullTime
	var photo sql.NullString

	err := scanner.Scan(&ti.ID, &ti.TaskID, &ti.UserID, &ti.DueTime, &ti.Status, &completedAt, &photo)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		t := completedAt.Time
		ti.CompletedAt = &t
	}
	if photo.Valid {
		ti.CompletionPhotoURL = &photo.String
	}
	return &ti, nil
}

const instanceCols = `id, task_id, user_id, due_time, status, completed_at, completion_photo_url`

func (s *InstanceStore) Create(taskID, userID int64, dueTime time.Time) (*model.TaskInstance, error) {
	result, err := s.db.Exec(
		`INSERT INTO task_instances (task_id, user_id, due_time, status) VALUES (?, ?, ?, ?)`,
		taskID, userID, dueTime.UTC(), model.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("insert instance: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *InstanceStore) GetByID(id int64) (*model.TaskInstance, error) {
	row := s.db.QueryRow(`SELECT `+instanceCols+` FROM task_instances WHERE id = ?`, id)
	ti, err := scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	return ti, nil
}

// ListDailyForUser returns the user's PENDING instances due today or
// later today (the daily task view).
func (s *InstanceStore) ListDailyForUser(userID int64, now time.Time) ([]model.TaskInstance, error) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	rows, err := s.db.Query(
		`SELECT `+instanceCols+` FROM task_instances
		WHERE user_id = ? AND due_time >= ? AND status = ?
		ORDER BY due_time ASC`,
		userID, startOfDay.UTC(), model.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list daily instances: %w", err)
	}
	defer rows.Close()

	return s.collect(rows)
}

// ListPending returns all PENDING and IN_REVIEW instances with their
// task and user attached, for the family dashboard and review queue.
func (s *InstanceStore) ListPending() ([]model.TaskInstance, error) {
	rows, err := s.db.Query(
		`SELECT ti.id, ti.task_id, ti.user_id, ti.due_time, ti.status, ti.completed_at, ti.completion_photo_url
		FROM task_instances ti
		WHERE ti.status IN (?, ?)
		ORDER BY ti.due_time ASC`,
		model.StatusPending, model.StatusInReview,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending instances: %w", err)
	}
	defer rows.Close()

	instances, err := s.collect(rows)
	if err != nil {
		return nil, err
	}
	return s.attach(instances)
}

func (s *InstanceStore) collect(rows *sql.Rows) ([]model.TaskInstance, error) {
	var instances []model.TaskInstance
	for rows.Next() {
		ti, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		instances = append(instances, *ti)
	}
	return instances, rows.Err()
}

// attach loads the task template and user for each instance.
func (s *InstanceStore) attach(instances []model.TaskInstance) ([]model.TaskInstance, error) {
	taskStore := NewTaskStore(s.db)
	userStore := NewUserStore(s.db)

	tasks := make(map[int64]*model.Task)
	users := make(map[int64]*model.User)
	for i := range instances {
		ti := &instances[i]
		t, ok := tasks[ti.TaskID]
		if !ok {
			var err error
			t, err = taskStore.GetByID(ti.TaskID)
			if err != nil {
				return nil, err
			}
			tasks[ti.TaskID] = t
		}
		u, ok := users[ti.UserID]
		if !ok {
			var err error
			u, err = userStore.GetByID(ti.UserID)
			if err != nil {
				return nil, err
			}
			users[ti.UserID] = u
		}
		ti.Task = t
		ti.User = u
	}
	return instances, nil
}

// HasPendingForDay reports whether a PENDING instance already exists
// for the task+user pair with a due time on the given day. This is the
// idempotency key for instance generation.
func (s *InstanceStore) HasPendingForDay(taskID, userID int64, day time.Time) (bool, error) {
	startOfDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM task_instances
		WHERE task_id = ? AND user_id = ? AND due_time >= ? AND status = ?`,
		taskID, userID, startOfDay.UTC(), model.StatusPending,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check pending instance: %w", err)
	}
	return count > 0, nil
}

// LastCompletion returns the most recent COMPLETED instance of a task
// by any user, or nil if it has never been completed.
func (s *InstanceStore) LastCompletion(taskID int64) (*model.TaskInstance, error) {
	row := s.db.QueryRow(
		`SELECT `+instanceCols+` FROM task_instances
		WHERE task_id = ? AND status = ? AND completed_at IS NOT NULL
		ORDER BY completed_at DESC LIMIT 1`,
		taskID, model.StatusCompleted,
	)
	ti, err := scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last completion: %w", err)
	}
	return ti, nil
}
