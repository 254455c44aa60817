package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/chorespec/chorespec/internal/model"
)

type TransactionStore struct {
	db *sql.DB
}

func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// TransactionFilter narrows ListFiltered. Zero values mean "no filter";
// Limit 0 falls back to 100.
type TransactionFilter struct {
	UserID    *int64
	Type      string
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
	Skip      int
	Limit     int
}

func scanTransaction(scanner interface{ Scan(...any) error }) (*model.Transaction, error) {
	var t model.Transaction
	var refID sql.NullInt64
	var groupID sql.NullString

	err := scanner.Scan(
		&t.ID, &t.UserID, &t.Type, &t.BasePointsValue, &t.MultiplierUsed,
		&t.AwardedPoints, &t.Description, &refID, &groupID, &t.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	if refID.Valid {
		t.ReferenceInstanceID = &refID.Int64
	}
	if groupID.Valid {
		t.RedemptionGroupID = &groupID.String
	}
	return &t, nil
}

const transactionCols = `id, user_id, type, base_points_value, multiplier_used,
	awarded_points, description, reference_instance_id, redemption_group_id, timestamp`

func (s *TransactionStore) GetByID(id int64) (*model.Transaction, error) {
	row := s.db.QueryRow(`SELECT `+transactionCols+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *TransactionStore) ListByUser(userID int64) ([]model.Transaction, error) {
	rows, err := s.db.Query(
		`SELECT `+transactionCols+` FROM transactions WHERE user_id = ? ORDER BY timestamp DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions by user: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListFiltered returns transactions matching the filter, newest first.
func (s *TransactionStore) ListFiltered(f TransactionFilter) ([]model.Transaction, error) {
	var conds []string
	var args []any

	if f.UserID != nil {
		conds = append(conds, "user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, f.Type)
	}
	if f.Search != "" {
		conds = append(conds, "description LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}
	if f.StartDate != nil {
		conds = append(conds, "timestamp >= ?")
		args = append(args, f.StartDate.UTC())
	}
	if f.EndDate != nil {
		conds = append(conds, "timestamp < ?")
		args = append(args, f.EndDate.UTC())
	}

	query := `SELECT ` + transactionCols + ` FROM transactions`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, f.Skip)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListByGroup returns all entries of one split redemption.
func (s *TransactionStore) ListByGroup(groupID string) ([]model.Transaction, error) {
	rows, err := s.db.Query(
		`SELECT `+transactionCols+` FROM transactions WHERE redemption_group_id = ? ORDER BY id ASC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions by group: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// SumByUser returns the signed sum of a user's entries. Always equals
// the user's current_points; the ledger tests assert this.
func (s *TransactionStore) SumByUser(userID int64) (int, error) {
	var sum sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(awarded_points), 0) FROM transactions WHERE user_id = ?`,
		userID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return int(sum.Int64), nil
}

func collectTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var txs []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}
