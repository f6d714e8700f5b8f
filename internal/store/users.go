package store

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.loadUsers(ctx)
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
}

// UpdateUser merges patch into the user with the given id. An unknown id is
// a no-op. The session pointer is refreshed when it refers to that user.
func (s *Store) UpdateUser(ctx context.Context, id string, patch UserPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(users, func(u User) bool { return u.ID == id })
	if i < 0 {
		return nil
	}
	patch.apply(&users[i])
	if err := s.saveUsers(ctx, users); err != nil {
		return err
	}

	sess, err := s.loadSession(ctx)
	if err != nil {
		return err
	}
	if sess != nil && sess.ID == id {
		sess.User = users[i]
		if err := s.saveSession(ctx, *sess); err != nil {
			return err
		}
	}
	return nil
}

// DeleteUser removes the user with the given id. Rides and bookings that
// reference the user are left as they are.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	users = slices.DeleteFunc(users, func(u User) bool { return u.ID == id })
	if err := s.saveUsers(ctx, users); err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("user_id", id))
	return nil
}

// VerifyUser marks the user verified.
func (s *Store) VerifyUser(ctx context.Context, id string) error {
	verified := true
	return s.UpdateUser(ctx, id, UserPatch{Verified: &verified})
}

// BlockUser blocks the user with the given reason.
func (s *Store) BlockUser(ctx context.Context, id, reason string) error {
	blocked := true
	return s.UpdateUser(ctx, id, UserPatch{Blocked: &blocked, BlockReason: &reason})
}

// UnblockUser lifts a block and clears its reason.
func (s *Store) UnblockUser(ctx context.Context, id string) error {
	blocked := false
	return s.UpdateUser(ctx, id, UserPatch{Blocked: &blocked})
}
