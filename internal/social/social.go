// Package social tracks friends and the accountability leaderboard: how
// promptly each user settles their share of bills.
package social

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrFriendExists is returned when a friend with the same email is already saved
var ErrFriendExists = errors.New("friend already exists")

// Friend is someone bills can be split with
type Friend struct {
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

// Metrics are a user's accountability numbers
type Metrics struct {
	Points      int             `json:"points"`
	DaysLate    int             `json:"days_late"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// LeaderboardEntry is one ranked user
type LeaderboardEntry struct {
	User    string  `json:"user"`
	Metrics Metrics `json:"metrics"`
}

// Store persists friends and leaderboard metrics
type Store interface {
	// AddFriend saves a new friend, or returns ErrFriendExists
	AddFriend(friend Friend) error
	// RemoveFriend deletes a friend by email. Removing an unknown email is not an error.
	RemoveFriend(email string) error
	// ListFriends returns all friends ordered by email
	ListFriends() ([]Friend, error)
	// SaveMetrics inserts or replaces a user's metrics
	SaveMetrics(user string, metrics Metrics) error
	// Leaderboard returns every user ordered by points, highest first.
	// Ties are ordered by user.
	Leaderboard() ([]LeaderboardEntry, error)
}

// normalizeEmail makes email lookups case-insensitive
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// compareEntries orders by points descending, then by user
func compareEntries(a, b LeaderboardEntry) int {
	if a.Metrics.Points != b.Metrics.Points {
		if a.Metrics.Points > b.Metrics.Points {
			return -1
		}
		return 1
	}
	return strings.Compare(a.User, b.User)
}
