package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/chorespec/chorespec/internal/database"
	"github.com/chorespec/chorespec/internal/model"
)

func setupTransactionTestDB(t *testing.T) (*TransactionStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTransactionStore(db), db
}

func insertTestUser(t *testing.T, db *sql.DB, nickname string) int64 {
	t.Helper()
	result, err := db.Exec(
		`INSERT INTO users (nickname, login_pin, role_id) VALUES (?, ?, 2)`,
		nickname, "hash",
	)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, _ := result.LastInsertId()
	return id
}

func insertTestTransaction(t *testing.T, db *sql.DB, userID int64, typ, description string, points int, ts time.Time, groupID *string) {
	t.Helper()
	var group sql.NullString
	if groupID != nil {
		group = sql.NullString{String: *groupID, Valid: true}
	}
	_, err := db.Exec(
		`INSERT INTO transactions (user_id, type, base_points_value, multiplier_used,
			awarded_points, description, redemption_group_id, timestamp)
		VALUES (?, ?, ?, 1.0, ?, ?, ?, ?)`,
		userID, typ, points, points, description, group, ts.UTC(),
	)
	if err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
}

func TestListFiltered(t *testing.T) {
	ts, db := setupTransactionTestDB(t)
	alice := insertTestUser(t, db, "alice")
	bob := insertTestUser(t, db, "bob")

	jan := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	insertTestTransaction(t, db, alice, model.TxEarn, "Dishes", 10, jan, nil)
	insertTestTransaction(t, db, alice, model.TxRedeem, "Movie night", -30, feb, nil)
	insertTestTransaction(t, db, bob, model.TxEarn, "Trash", 5, feb, nil)

	t.Run("by type", func(t *testing.T) {
		got, err := ts.ListFiltered(TransactionFilter{Type: model.TxEarn})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 EARN transactions, got %d", len(got))
		}
	})

	t.Run("by user", func(t *testing.T) {
		got, err := ts.ListFiltered(TransactionFilter{UserID: &bob})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 1 || got[0].Description != "Trash" {
			t.Fatalf("expected bob's single transaction, got %+v", got)
		}
	})

	t.Run("by date range", func(t *testing.T) {
		start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		got, err := ts.ListFiltered(TransactionFilter{StartDate: &start, EndDate: &end})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 February transactions, got %d", len(got))
		}
	})

	t.Run("by description search", func(t *testing.T) {
		got, err := ts.ListFiltered(TransactionFilter{Search: "movie"})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 1 || got[0].Description != "Movie night" {
			t.Fatalf("expected movie transaction, got %+v", got)
		}
	})

	t.Run("newest first with pagination", func(t *testing.T) {
		got, err := ts.ListFiltered(TransactionFilter{Limit: 2})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 transactions, got %d", len(got))
		}
		if !got[0].Timestamp.After(got[1].Timestamp) && !got[0].Timestamp.Equal(got[1].Timestamp) {
			t.Errorf("not sorted newest first: %v then %v", got[0].Timestamp, got[1].Timestamp)
		}

		rest, err := ts.ListFiltered(TransactionFilter{Skip: 2})
		if err != nil {
			t.Fatalf("list rest: %v", err)
		}
		if len(rest) != 1 {
			t.Fatalf("expected 1 remaining transaction, got %d", len(rest))
		}
	})
}

func TestListByGroup(t *testing.T) {
	ts, db := setupTransactionTestDB(t)
	alice := insertTestUser(t, db, "alice")
	bob := insertTestUser(t, db, "bob")

	group := "f4b7d0c2-1111-2222-3333-444455556666"
	now := time.Now()
	insertTestTransaction(t, db, alice, model.TxRedeem, "Pizza party", -50, now, &group)
	insertTestTransaction(t, db, bob, model.TxRedeem, "Pizza party", -50, now, &group)
	insertTestTransaction(t, db, alice, model.TxEarn, "Dishes", 10, now, nil)

	got, err := ts.ListByGroup(group)
	if err != nil {
		t.Fatalf("list by group: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 group transactions, got %d", len(got))
	}
	for _, tx := range got {
		if tx.RedemptionGroupID == nil || *tx.RedemptionGroupID != group {
			t.Errorf("transaction %d missing group id", tx.ID)
		}
	}
}

func TestSumByUser(t *testing.T) {
	ts, db := setupTransactionTestDB(t)
	alice := insertTestUser(t, db, "alice")

	if sum, err := ts.SumByUser(alice); err != nil || sum != 0 {
		t.Fatalf("empty sum = %d, %v; want 0, nil", sum, err)
	}

	now := time.Now()
	insertTestTransaction(t, db, alice, model.TxEarn, "Dishes", 10, now, nil)
	insertTestTransaction(t, db, alice, model.TxEarn, "Trash", 5, now, nil)
	insertTestTransaction(t, db, alice, model.TxRedeem, "Candy", -8, now, nil)

	sum, err := ts.SumByUser(alice)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if sum != 7 {
		t.Errorf("sum = %d, want 7", sum)
	}
}
