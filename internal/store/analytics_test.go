package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/chorespec/chorespec/internal/database"
	"github.com/chorespec/chorespec/internal/model"
)

func setupAnalyticsTestDB(t *testing.T) (*AnalyticsStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAnalyticsStore(db), db
}

func completeInstanceAt(t *testing.T, db *sql.DB, taskID, userID int64, completedAt time.Time) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO task_instances (task_id, user_id, due_time, status, completed_at)
		VALUES (?, ?, ?, ?, ?)`,
		taskID, userID, completedAt, model.StatusCompleted, completedAt.UTC(),
	)
	if err != nil {
		t.Fatalf("insert completed instance: %v", err)
	}
}

func TestWeeklyActivity(t *testing.T) {
	as, db := setupAnalyticsTestDB(t)

	alice, err := NewUserStore(db).Create("alice", "hash", 2)
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

	now := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	completeInstanceAt(t, db, task.ID, alice.ID, now.Add(-2*time.Hour))
	completeInstanceAt(t, db, task.ID, alice.ID, now.AddDate(0, 0, -1))
	completeInstanceAt(t, db, task.ID, alice.ID, now.AddDate(0, 0, -1).Add(time.Hour))
	// Outside the 7-day window: ignored.
	completeInstanceAt(t, db, task.ID, alice.ID, now.AddDate(0, 0, -8))

	days, err := as.WeeklyActivity(now)
	if err != nil {
		t.Fatalf("weekly activity: %v", err)
	}
	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}

	if days[0].Date != "2026-03-02" || days[6].Date != "2026-03-08" {
		t.Errorf("window = %s .. %s, want 2026-03-02 .. 2026-03-08", days[0].Date, days[6].Date)
	}

	// Empty days still have an entry with an empty stats map.
	if days[0].UserStats == nil || len(days[0].UserStats) != 0 {
		t.Errorf("day 0 stats = %v, want empty map", days[0].UserStats)
	}
	if got := days[5].UserStats["alice"]; got != 2 {
		t.Errorf("yesterday count = %d, want 2", got)
	}
	if got := days[6].UserStats["alice"]; got != 1 {
		t.Errorf("today count = %d, want 1", got)
	}
}

func TestPointsDistribution(t *testing.T) {
	as, db := setupAnalyticsTestDB(t)

	shares, err := as.PointsDistribution()
	if err != nil {
		t.Fatalf("empty distribution: %v", err)
	}
	if len(shares) != 0 {
		t.Fatalf("expected no shares, got %d", len(shares))
	}

	users := NewUserStore(db)
	alice, err := users.Create("alice", "hash", 1)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	bob, err := users.Create("bob", "hash", 2)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := db.Exec(`UPDATE users SET lifetime_points = 50 WHERE id = ?`, alice.ID); err != nil {
		t.Fatalf("set points: %v", err)
	}
	if _, err := db.Exec(`UPDATE users SET lifetime_points = 120 WHERE id = ?`, bob.ID); err != nil {
		t.Fatalf("set points: %v", err)
	}

	shares, err = as.PointsDistribution()
	if err != nil {
		t.Fatalf("distribution: %v", err)
	}
	if len(shares) != 2 {
		t.Fatalf("expected 2 shares, got %d", len(shares))
	}
	// Highest lifetime points first.
	if shares[0].Name != "bob" || shares[0].Value != 120 || shares[0].Role != "Child" {
		t.Errorf("shares[0] = %+v, want bob 120 Child", shares[0])
	}
	if shares[1].Name != "alice" || shares[1].Value != 50 || shares[1].Role != "Parent" {
		t.Errorf("shares[1] = %+v, want alice 50 Parent", shares[1])
	}
}
