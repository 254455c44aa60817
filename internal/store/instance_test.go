package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/chorespec/chorespec/internal/database"
	"github.com/chorespec/chorespec/internal/model"
)

func setupInstanceTestDB(t *testing.T) (*InstanceStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewInstanceStore(db), db
}

func instanceFixtures(t *testing.T, db *sql.DB) (userID, taskID int64) {
	t.Helper()
	user, err := NewUserStore(db).Create("alice", "hash", 2)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	task, err := NewTaskStore(db).Create(model.Task{
		Name: "Dishes", Description: "d", BasePoints: 10,
		ScheduleType: model.ScheduleDaily, DefaultDueTime: "17:00",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return user.ID, task.ID
}

func TestHasPendingForDay(t *testing.T) {
	is, db := setupInstanceTestDB(t)
	userID, taskID := instanceFixtures(t, db)

	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	exists, err := is.HasPendingForDay(taskID, userID, day)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if exists {
		t.Fatal("expected no pending instance yet")
	}

	instance, err := is.Create(taskID, userID, day.Add(8*time.Hour))
	if err != nil {
		t.Fatalf("create instance: %v", err)
	}

	exists, err = is.HasPendingForDay(taskID, userID, day)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !exists {
		t.Error("expected pending instance to be found")
	}

	// A completed instance no longer counts.
	if _, err := db.Exec(
		`UPDATE task_instances SET status = ? WHERE id = ?`,
		model.StatusCompleted, instance.ID,
	); err != nil {
		t.Fatalf("complete instance: %v", err)
	}
	exists, err = is.HasPendingForDay(taskID, userID, day)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if exists {
		t.Error("completed instance should not count as pending")
	}
}

func TestLastCompletion(t *testing.T) {
	is, db := setupInstanceTestDB(t)
	userID, taskID := instanceFixtures(t, db)

	last, err := is.LastCompletion(taskID)
	if err != nil {
		t.Fatalf("last completion: %v", err)
	}
	if last != nil {
		t.Fatalf("expected nil with no history, got %+v", last)
	}

	older := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for _, completedAt := range []time.Time{older, newer} {
		instance, err := is.Create(taskID, userID, completedAt)
		if err != nil {
			t.Fatalf("create instance: %v", err)
		}
		if _, err := db.Exec(
			`UPDATE task_instances SET status = ?, completed_at = ? WHERE id = ?`,
			model.StatusCompleted, completedAt, instance.ID,
		); err != nil {
			t.Fatalf("complete instance: %v", err)
		}
	}

	last, err = is.LastCompletion(taskID)
	if err != nil {
		t.Fatalf("last completion: %v", err)
	}
	if last == nil || last.CompletedAt == nil {
		t.Fatal("expected a completion")
	}
	if !last.CompletedAt.Equal(newer) {
		t.Errorf("completed_at = %v, want %v", last.CompletedAt, newer)
	}
}

func TestListDailyForUser(t *testing.T) {
	is, db := setupInstanceTestDB(t)
	userID, taskID := instanceFixtures(t, db)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// Due later today: included.
	today, err := is.Create(taskID, userID, now.Add(8*time.Hour))
	if err != nil {
		t.Fatalf("create instance: %v", err)
	}
	// Due yesterday: excluded.
	if _, err := db.Exec(
		`INSERT INTO task_instances (task_id, user_id, due_time, status) VALUES (?, ?, ?, ?)`,
		taskID, userID, now.AddDate(0, 0, -1), model.StatusPending,
	); err != nil {
		t.Fatalf("insert stale instance: %v", err)
	}

	got, err := is.ListDailyForUser(userID, now)
	if err != nil {
		t.Fatalf("list daily: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(got))
	}
	if got[0].ID != today.ID {
		t.Errorf("instance id = %d, want %d", got[0].ID, today.ID)
	}
}

func TestListPendingAttachesTaskAndUser(t *testing.T) {
	is, db := setupInstanceTestDB(t)
	userID, taskID := instanceFixtures(t, db)

	if _, err := is.Create(taskID, userID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create instance: %v", err)
	}

	got, err := is.ListPending()
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(got))
	}
	if got[0].Task == nil || got[0].Task.Name != "Dishes" {
		t.Errorf("task not attached: %+v", got[0].Task)
	}
	if got[0].User == nil || got[0].User.Nickname != "alice" {
		t.Errorf("user not attached: %+v", got[0].User)
	}
}
