package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/teesien1998/Synthoria/internal/models"
	bolt "go.etcd.io/bbolt"
)

// ErrNotFound is returned when a chat does not exist or is not owned by the
// requesting user. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("not found")

// BoltDB implements chat and user persistence on a BoltDB backend. Chats are
// stored as whole documents in a per-user bucket, so ownership is enforced by
// bucket addressing rather than a filtered scan.
type BoltDB struct {
	db *bolt.DB
}

// NewBoltDB opens the database at the given path, creating it with 0600
// permissions if it doesn't exist, and initializes the users bucket. The
// returned handle is acquired once at process start and injected wherever
// persistence is needed.
func NewBoltDB(path string) (BoltDB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltDB{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte("users"))
		return err
	})

	return BoltDB{db: db}, err
}

func chatBucketName(userID string) []byte {
	return []byte(fmt.Sprintf("chats-%s", userID))
}

// Chats retrieves all chats owned by userID, ordered by recency of update
// descending. A user with no chats gets an empty slice, not an error.
func (b BoltDB) Chats(_ context.Context, userID string) ([]models.Chat, error) {
	var chats []models.Chat
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(chatBucketName(userID))
		if bkt == nil {
			return nil
		}

		return bkt.ForEach(func(_, v []byte) error {
			var chat models.Chat
			if err := json.Unmarshal(v, &chat); err != nil {
				return fmt.Errorf("failed to unmarshal chat: %w", err)
			}
			chats = append(chats, chat)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(chats, func(a, c models.Chat) int {
		return c.UpdatedAt.Compare(a.UpdatedAt)
	})
	return chats, nil
}

// AddChat stores a new chat document under its owner's bucket, creating the
// bucket on first use.
func (b BoltDB) AddChat(_ context.Context, chat models.Chat) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(chatBucketName(chat.UserID))
		if err != nil {
			return fmt.Errorf("failed to create chat bucket: %w", err)
		}

		v, err := json.Marshal(chat)
		if err != nil {
			return fmt.Errorf("failed to marshal chat: %w", err)
		}

		return bkt.Put([]byte(chat.ID), v)
	})
}

// Chat loads a single chat document by owner and id. It returns ErrNotFound
// when the chat is absent or owned by someone else.
func (b BoltDB) Chat(_ context.Context, userID, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(chatBucketName(userID))
		if bkt == nil {
			return ErrNotFound
		}

		v := bkt.Get([]byte(chatID))
		if v == nil {
			return ErrNotFound
		}

		if err := json.Unmarshal(v, &chat); err != nil {
			return fmt.Errorf("failed to unmarshal chat: %w", err)
		}
		return nil
	})
	return chat, err
}

// UpdateChat replaces an existing chat document. The write is whole-document
// and last-write-wins; two concurrent writers on the same chat are not
// serialized beyond the individual Put. Returns ErrNotFound if the chat
// doesn't exist.
func (b BoltDB) UpdateChat(_ context.Context, chat models.Chat) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(chatBucketName(chat.UserID))
		if bkt == nil {
			return ErrNotFound
		}

		if bkt.Get([]byte(chat.ID)) == nil {
			return ErrNotFound
		}

		v, err := json.Marshal(chat)
		if err != nil {
			return fmt.Errorf("failed to marshal chat: %w", err)
		}

		return bkt.Put([]byte(chat.ID), v)
	})
}

// DeleteChat removes a chat document. Deleting a chat that doesn't exist is
// not an error.
func (b BoltDB) DeleteChat(_ context.Context, userID, chatID string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(chatBucketName(userID))
		if bkt == nil {
			return nil
		}

		return bkt.Delete([]byte(chatID))
	})
}

// UpsertUser creates or replaces the identity record keyed by the external
// identity id.
func (b BoltDB) UpsertUser(_ context.Context, user models.User) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte("users"))
		if bkt == nil {
			return nil
		}

		v, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("failed to marshal user: %w", err)
		}

		return bkt.Put([]byte(user.ID), v)
	})
}

// DeleteUser removes the identity record. Idempotent.
func (b BoltDB) DeleteUser(_ context.Context, userID string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte("users"))
		if bkt == nil {
			return nil
		}

		return bkt.Delete([]byte(userID))
	})
}
