package userstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bazario-labs/authcore"
)

// Memory is a map-backed [authcore.UserStore] for tests and local
// development. It applies the same contract as [Postgres]: duplicate
// emails fail with [authcore.ErrAccountExists] and missing accounts with
// [authcore.ErrUserNotFound].
type Memory struct {
	mu       sync.RWMutex
	byEmail  map[string]*authcore.UserRecord
	failNext error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{byEmail: make(map[string]*authcore.UserRecord)}
}

// FindByEmail implements [authcore.UserStore].
func (s *Memory) FindByEmail(_ context.Context, email string) (*authcore.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	record, ok := s.byEmail[email]
	if !ok {
		return nil, authcore.ErrUserNotFound
	}
	out := *record
	return &out, nil
}

// Create implements [authcore.UserStore].
func (s *Memory) Create(_ context.Context, input authcore.CreateUserInput) (*authcore.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	if _, ok := s.byEmail[input.Email]; ok {
		return nil, authcore.ErrAccountExists
	}

	record := &authcore.UserRecord{
		ID:           uuid.NewString(),
		Role:         input.Role,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Phone:        input.Phone,
		Country:      input.Country,
		CreatedAt:    time.Now().UTC(),
	}
	s.byEmail[input.Email] = record

	out := *record
	return &out, nil
}

// UpdatePasswordHash implements [authcore.UserStore].
func (s *Memory) UpdatePasswordHash(_ context.Context, email, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return err
	}
	record, ok := s.byEmail[email]
	if !ok {
		return authcore.ErrUserNotFound
	}
	record.PasswordHash = hash
	return nil
}

// FailNext makes the next store call return err. Tests use this to
// exercise backend-failure paths.
func (s *Memory) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *Memory) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}
