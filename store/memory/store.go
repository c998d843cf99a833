// Package memory provides an in-process [ardentid.UserStore] for tests,
// demos and single-node deployments that do not need durable accounts.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/ardentid"
	"github.com/google/uuid"
)

// Store keeps user records in a map keyed by exact email. Records are copied
// on the way in and out.
type Store struct {
	mu      sync.RWMutex
	byEmail map[string]ardentid.UserRecord
	byID    map[string]string
	now     func() time.Time
}

func New() *Store {
	return &Store{
		byEmail: make(map[string]ardentid.UserRecord),
		byID:    make(map[string]string),
		now:     time.Now,
	}
}

func (s *Store) FindByEmail(ctx context.Context, email string) (ardentid.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return ardentid.UserRecord{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byEmail[email]
	if !ok {
		return ardentid.UserRecord{}, ardentid.ErrUserNotFound
	}
	return cloneRecord(user), nil
}

// Insert stores user and returns its ID, assigning a UUID when ID is empty.
func (s *Store) Insert(ctx context.Context, user ardentid.UserRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return "", ardentid.ErrDuplicateIdentity
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, ok := s.byID[user.ID]; ok {
		return "", ardentid.ErrDuplicateIdentity
	}

	s.byEmail[user.Email] = cloneRecord(user)
	s.byID[user.ID] = user.Email
	return user.ID, nil
}

func (s *Store) MarkEmailConfirmed(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.byID[userID]
	if !ok {
		return ardentid.ErrUserNotFound
	}
	user := s.byEmail[email]
	user.EmailConfirmed = true
	user.Status = ardentid.StatusActive
	user.UpdatedAt = s.now().UTC()
	s.byEmail[email] = user
	return nil
}

// Len returns the number of stored users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEmail)
}

func cloneRecord(u ardentid.UserRecord) ardentid.UserRecord {
	if u.Roles != nil {
		u.Roles = append([]string(nil), u.Roles...)
	}
	return u
}
