package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/chorespec/chorespec/internal/model"
)

type AnalyticsStore struct {
	db *sql.DB
}

func NewAnalyticsStore(db *sql.DB) *AnalyticsStore {
	return &AnalyticsStore{db: db}
}

// DailyActivity is one day of completion counts keyed by nickname.
type DailyActivity struct {
	Date      string         `json:"date"`
	UserStats map[string]int `json:"user_stats"`
}

// WeeklyActivity returns completion counts for the 7 days ending
// today, one entry per day even when nothing was completed.
func (s *AnalyticsStore) WeeklyActivity(now time.Time) ([]DailyActivity, error) {
	start := now.AddDate(0, 0, -6)
	startOfWindow := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	rows, err := s.db.Query(
		`SELECT date(ti.completed_at), u.nickname, COUNT(ti.id)
		FROM task_instances ti
		JOIN users u ON u.id = ti.user_id
		WHERE ti.status = ? AND ti.completed_at >= ?
		GROUP BY date(ti.completed_at), u.nickname`,
		model.StatusCompleted, startOfWindow,
	)
	if err != nil {
		return nil, fmt.Errorf("weekly activity: %w", err)
	}
	defer rows.Close()

	byDate := make(map[string]map[string]int, 7)
	days := make([]DailyActivity, 0, 7)
	for i := 0; i < 7; i++ {
		d := start.AddDate(0, 0, i).Format(dateLayout)
		byDate[d] = make(map[string]int)
		days = append(days, DailyActivity{Date: d})
	}

	for rows.Next() {
		var date, nickname string
		var count int
		if err := rows.Scan(&date, &nickname, &count); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if stats, ok := byDate[date]; ok {
			stats[nickname] = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range days {
		days[i].UserStats = byDate[days[i].Date]
	}
	return days, nil
}

// PointsShare is one user's slice of the lifetime-points pie.
type PointsShare struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Role  string `json:"role"`
}

// PointsDistribution returns lifetime points per user with their role
// name attached.
func (s *AnalyticsStore) PointsDistribution() ([]PointsShare, error) {
	rows, err := s.db.Query(
		`SELECT u.nickname, u.lifetime_points, r.name
		FROM users u
		JOIN roles r ON r.id = u.role_id
		ORDER BY u.lifetime_points DESC, u.id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("points distribution: %w", err)
	}
	defer rows.Close()

	var shares []PointsShare
	for rows.Next() {
		var p PointsShare
		if err := rows.Scan(&p.Name, &p.Value, &p.Role); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shares = append(shares, p)
	}
	return shares, rows.Err()
}
