package store

import (
	"database/sql"
	"fmt"

	"github.com/chorespec/chorespec/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var roleID sql.NullInt64
	var minDays, maxDays sql.NullInt64
	var photo int

	err := scanner.Scan(
		&t.ID, &t.Name, &t.Description, &t.BasePoints, &roleID,
		&t.ScheduleType, &t.DefaultDueTime, &minDays, &maxDays, &photo,
	)
	if err != nil {
		return nil, err
	}

	if roleID.Valid {
		t.AssignedRoleID = &roleID.Int64
	}
	if minDays.Valid {
		v := int(minDays.Int64)
		t.RecurrenceMinDays = &v
	}
	if maxDays.Valid {
		v := int(maxDays.Int64)
		t.RecurrenceMaxDays = &v
	}
	t.RequiresPhotoVerification = photo != 0
	return &t, nil
}

const taskCols = `id, name, description, base_points, assigned_role_id,
	schedule_type, default_due_time, recurrence_min_days, recurrence_max_days,
	requires_photo_verification`

func (s *TaskStore) Create(t model.Task) (*model.Task, error) {
	var roleID sql.NullInt64
	if t.AssignedRoleID != nil {
		roleID = sql.NullInt64{Int64: *t.AssignedRoleID, Valid: true}
	}
	var minDays, maxDays sql.NullInt64
	if t.RecurrenceMinDays != nil {
		minDays = sql.NullInt64{Int64: int64(*t.RecurrenceMinDays), Valid: true}
	}
	if t.RecurrenceMaxDays != nil {
		maxDays = sql.NullInt64{Int64: int64(*t.RecurrenceMaxDays), Valid: true}
	}
	var photo int
	if t.RequiresPhotoVerification {
		photo = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (name, description, base_points, assigned_role_id,
			schedule_type, default_due_time, recurrence_min_days, recurrence_max_days,
			requires_photo_verification)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Description, t.BasePoints, roleID,
		t.ScheduleType, t.DefaultDueTime, minDays, maxDays, photo,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) List() ([]model.Task, error) {
	rows, err := s.db.Query(`SELECT ` + taskCols + ` FROM tasks ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// NameExists reports whether a task with this name already exists,
// used by bulk import's duplicate detection.
func (s *TaskStore) NameExists(name string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check task name: %w", err)
	}
	return count > 0, nil
}

// Update overwrites the template. Past instances keep the points they
// were awarded; only future generations see the new values.
func (s *TaskStore) Update(id int64, t model.Task) (*model.Task, error) {
	var roleID sql.NullInt64
	if t.AssignedRoleID != nil {
		roleID = sql.NullInt64{Int64: *t.AssignedRoleID, Valid: true}
	}
	var minDays, maxDays sql.NullInt64
	if t.RecurrenceMinDays != nil {
		minDays = sql.NullInt64{Int64: int64(*t.RecurrenceMinDays), Valid: true}
	}
	if t.RecurrenceMaxDays != nil {
		maxDays = sql.NullInt64{Int64: int64(*t.RecurrenceMaxDays), Valid: true}
	}
	var photo int
	if t.RequiresPhotoVerification {
		photo = 1
	}

	_, err := s.db.Exec(
		`UPDATE tasks SET name = ?, description = ?, base_points = ?, assigned_role_id = ?,
			schedule_type = ?, default_due_time = ?, recurrence_min_days = ?, recurrence_max_days = ?,
			requires_photo_verification = ?
		WHERE id = ?`,
		t.Name, t.Description, t.BasePoints, roleID,
		t.ScheduleType, t.DefaultDueTime, minDays, maxDays, photo, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
