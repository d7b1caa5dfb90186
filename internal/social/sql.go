package social

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS friends (
	email TEXT PRIMARY KEY,
	name  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS leaderboard (
	user_name    TEXT PRIMARY KEY,
	points       INTEGER NOT NULL,
	days_late    INTEGER NOT NULL,
	total_amount TEXT NOT NULL
);
`

// SQLStore implements Store on the bill database's sqlx pool
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore creates the social tables if they don't exist.
// The caller keeps ownership of db.
func NewSQLStore(db *sqlx.DB) (*SQLStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating social tables: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// AddFriend saves a friend keyed by email
func (s *SQLStore) AddFriend(friend Friend) error {
	res, err := s.db.Exec(s.db.Rebind(`
		INSERT INTO friends (email, name) VALUES (?, ?)
		ON CONFLICT (email) DO NOTHING`), normalizeEmail(friend.Email), friend.Name)
	if err != nil {
		return fmt.Errorf("adding friend %s: %w", friend.Email, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adding friend %s: %w", friend.Email, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrFriendExists, friend.Email)
	}
	return nil
}

// RemoveFriend deletes a friend by email
func (s *SQLStore) RemoveFriend(email string) error {
	if _, err := s.db.Exec(s.db.Rebind(`DELETE FROM friends WHERE email = ?`), normalizeEmail(email)); err != nil {
		return fmt.Errorf("removing friend %s: %w", email, err)
	}
	return nil
}

// ListFriends returns all friends ordered by email
func (s *SQLStore) ListFriends() ([]Friend, error) {
	friends := make([]Friend, 0)
	if err := s.db.Select(&friends, `SELECT email, name FROM friends ORDER BY email`); err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}
	return friends, nil
}

// SaveMetrics inserts or replaces a user's metrics
func (s *SQLStore) SaveMetrics(user string, metrics Metrics) error {
	_, err := s.db.Exec(s.db.Rebind(`
		INSERT INTO leaderboard (user_name, points, days_late, total_amount)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_name) DO UPDATE SET
			points = excluded.points,
			days_late = excluded.days_late,
			total_amount = excluded.total_amount`),
		user, metrics.Points, metrics.DaysLate, metrics.TotalAmount)
	if err != nil {
		return fmt.Errorf("saving metrics for %s: %w", user, err)
	}
	return nil
}

// leaderboardRow is a leaderboard table row
type leaderboardRow struct {
	User        string          `db:"user_name"`
	Points      int             `db:"points"`
	DaysLate    int             `db:"days_late"`
	TotalAmount decimal.Decimal `db:"total_amount"`
}

// Leaderboard returns every user ordered by points, highest first
func (s *SQLStore) Leaderboard() ([]LeaderboardEntry, error) {
	var rows []leaderboardRow
	err := s.db.Select(&rows, `
		SELECT user_name, points, days_late, total_amount
		FROM leaderboard
		ORDER BY points DESC, user_name`)
	if err != nil {
		return nil, fmt.Errorf("listing leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, LeaderboardEntry{
			User: row.User,
			Metrics: Metrics{
				Points:      row.Points,
				DaysLate:    row.DaysLate,
				TotalAmount: row.TotalAmount,
			},
		})
	}
	return entries, nil
}
