package social

import (
	"encoding/json"
	"fmt"
	"slices"

	"go.etcd.io/bbolt"
)

const (
	friendBucketName      = "friends"
	leaderboardBucketName = "leaderboard"
)

// BoltStore implements Store on a BoltDB file shared with the bill database
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates the social buckets in db if they don't exist.
// The caller keeps ownership of db.
func NewBoltStore(db *bbolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(friendBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(leaderboardBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating social buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// AddFriend saves a friend keyed by email
func (b *BoltStore) AddFriend(friend Friend) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(friendBucketName))
		friend.Email = normalizeEmail(friend.Email)
		key := []byte(friend.Email)
		if bucket.Get(key) != nil {
			return fmt.Errorf("%w: %s", ErrFriendExists, friend.Email)
		}
		data, err := json.Marshal(friend)
		if err != nil {
			return fmt.Errorf("marshaling friend: %w", err)
		}
		return bucket.Put(key, data)
	})
}

// RemoveFriend deletes a friend by email
func (b *BoltStore) RemoveFriend(email string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(friendBucketName)).Delete([]byte(normalizeEmail(email)))
	})
}

// ListFriends returns all friends in key (email) order
func (b *BoltStore) ListFriends() ([]Friend, error) {
	friends := make([]Friend, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(friendBucketName)).ForEach(func(k, v []byte) error {
			var friend Friend
			if err := json.Unmarshal(v, &friend); err != nil {
				return fmt.Errorf("unmarshaling friend: %w", err)
			}
			friends = append(friends, friend)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return friends, nil
}

// SaveMetrics inserts or replaces a user's metrics
func (b *BoltStore) SaveMetrics(user string, metrics Metrics) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(metrics)
		if err != nil {
			return fmt.Errorf("marshaling metrics: %w", err)
		}
		return tx.Bucket([]byte(leaderboardBucketName)).Put([]byte(user), data)
	})
}

// Leaderboard returns every user ordered by points, highest first
func (b *BoltStore) Leaderboard() ([]LeaderboardEntry, error) {
	entries := make([]LeaderboardEntry, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(leaderboardBucketName)).ForEach(func(k, v []byte) error {
			entry := LeaderboardEntry{User: string(k)}
			if err := json.Unmarshal(v, &entry.Metrics); err != nil {
				return fmt.Errorf("unmarshaling metrics: %w", err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(entries, compareEntries)
	return entries, nil
}
