package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/chorespec/chorespec/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const dateLayout = "2006-01-02"

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var role model.Role
	var goalID sql.NullInt64
	var lang sql.NullString
	var lastTask sql.NullString

	err := scanner.Scan(
		&u.ID, &u.Nickname, &u.RoleID, &u.CurrentPoints, &u.LifetimePoints,
		&goalID, &lang, &u.CurrentStreak, &lastTask,
		&role.ID, &role.Name, &role.MultiplierValue,
	)
	if err != nil {
		return nil, err
	}

	if goalID.Valid {
		u.CurrentGoalRewardID = &goalID.Int64
	}
	if lang.Valid {
		u.PreferredLanguage = &lang.String
	}
	if lastTask.Valid {
		if d, err := time.Parse(dateLayout, lastTask.String); err == nil {
			u.LastTaskDate = &d
		}
	}
	u.Role = &role
	return &u, nil
}

const userCols = `u.id, u.nickname, u.role_id, u.current_points, u.lifetime_points,
	u.current_goal_reward_id, u.preferred_language, u.current_streak, u.last_task_date,
	r.id, r.name, r.multiplier_value`

const userFrom = ` FROM users u JOIN roles r ON r.id = u.role_id`

// Create inserts a new user. pinHash must already be bcrypt-hashed.
func (s *UserStore) Create(nickname, pinHash string, roleID int64) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (nickname, login_pin, role_id) VALUES (?, ?, ?)`,
		nickname, pinHash, roleID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+userFrom+` WHERE u.id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByNickname(nickname string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+userFrom+` WHERE u.nickname = ?`, nickname)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by nickname: %w", err)
	}
	return u, nil
}

func (s *UserStore) List() ([]model.User, error) {
	rows, err := s.db.Query(`SELECT ` + userCols + userFrom + ` ORDER BY u.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *UserStore) ListByRole(roleID int64) ([]model.User, error) {
	rows, err := s.db.Query(`SELECT `+userCols+userFrom+` WHERE u.role_id = ? ORDER BY u.id ASC`, roleID)
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// GetPINHash returns the stored bcrypt hash for the user's login PIN.
func (s *UserStore) GetPINHash(id int64) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT login_pin FROM users WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("user not found")
	}
	if err != nil {
		return "", fmt.Errorf("query pin: %w", err)
	}
	return hash, nil
}

func (s *UserStore) SetGoal(id, rewardID int64) (*model.User, error) {
	_, err := s.db.Exec(`UPDATE users SET current_goal_reward_id = ? WHERE id = ?`, rewardID, id)
	if err != nil {
		return nil, fmt.Errorf("set goal: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) UpdateLanguage(id int64, language *string) (*model.User, error) {
	var lang sql.NullString
	if language != nil && *language != "" {
		lang = sql.NullString{String: *language, Valid: true}
	}
	_, err := s.db.Exec(`UPDATE users SET preferred_language = ? WHERE id = ?`, lang, id)
	if err != nil {
		return nil, fmt.Errorf("update language: %w", err)
	}
	return s.GetByID(id)
}
