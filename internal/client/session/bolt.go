package session

import (
	"fmt"
	"time"

	"github.com/boltdb/bolt"
)

var _ Store = (*BoltStore)(nil)

var bucketName = []byte("session")

// BoltStore persists the session in a BoltDB file so it survives restarts.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens or creates the session file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session file %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create session bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) AccessToken() (string, error) {
	return s.get(AccessTokenKey)
}

func (s *BoltStore) RefreshToken() (string, error) {
	return s.get(RefreshTokenKey)
}

func (s *BoltStore) SetAccessToken(token string) error {
	return s.put(AccessTokenKey, token)
}

func (s *BoltStore) SetRefreshToken(token string) error {
	return s.put(RefreshTokenKey, token)
}

func (s *BoltStore) Clear() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if err := b.Delete([]byte(AccessTokenKey)); err != nil {
			return err
		}
		return b.Delete([]byte(RefreshTokenKey))
	})
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *BoltStore) IsAuthenticated() bool {
	_, err := s.AccessToken()
	return err == nil
}

func (s *BoltStore) get(key string) (string, error) {
	var token string
	err := s.db.View(func(tx *bolt.Tx) error {
		// bytes returned by Get are only valid inside the transaction
		token = string(tx.Bucket(bucketName).Get([]byte(key)))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (s *BoltStore) put(key, token string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), []byte(token))
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
