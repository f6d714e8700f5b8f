package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"rideconnect/internal/events"
)

// CurrentUser returns the session user, or nil when signed out.
func (s *Store) CurrentUser(ctx context.Context) (*User, error) {
	sess, err := s.Session(ctx)
	if err != nil || sess == nil {
		return nil, err
	}
	u := sess.User
	return &u, nil
}

// Session returns the full session record, or nil when signed out.
func (s *Store) Session(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadSession(ctx)
}

// SetSession replaces the session record.
func (s *Store) SetSession(ctx context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveSession(ctx, sess)
}

// SignOut clears the session pointer.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Remove(ctx, CurrentUserKey); err != nil {
		return fmt.Errorf("remove %s: %w", CurrentUserKey, err)
	}
	return nil
}

// Authenticate resolves credentials to a user without touching the session.
//
// The administrator email with the administrator password always succeeds
// while the admin record exists. Every other account is looked up by email
// only; the password is not checked.
func (s *Store) Authenticate(ctx context.Context, email, password string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticateLocked(ctx, email, password)
}

func (s *Store) authenticateLocked(ctx context.Context, email, password string) (User, error) {
	if err := s.seedLocked(ctx); err != nil {
		return User{}, err
	}
	users, err := s.loadUsers(ctx)
	if err != nil {
		return User{}, err
	}
	email = strings.TrimSpace(email)

	if s.adminCredential(email, password) {
		for _, u := range users {
			if u.Email == AdminEmail {
				return u, nil
			}
		}
	}

	for _, u := range users {
		if u.Email != email {
			continue
		}
		if u.Blocked {
			return User{}, &BlockedError{Reason: u.BlockReason}
		}
		return u, nil
	}
	return User{}, fmt.Errorf("user %q: %w", email, ErrNotFound)
}

// AdminCredential reports whether email and password are the administrator
// credential. Authenticate resolves the admin email without it; callers that
// grant admin rights must check it too.
func (s *Store) AdminCredential(email, password string) bool {
	return s.adminCredential(strings.TrimSpace(email), password)
}

func (s *Store) adminCredential(email, password string) bool {
	return email == AdminEmail && s.adminHash != nil &&
		bcrypt.CompareHashAndPassword(s.adminHash, []byte(password)) == nil
}

// SignIn authenticates and makes the user the current session.
func (s *Store) SignIn(ctx context.Context, email, password string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.authenticateLocked(ctx, email, password)
	if err != nil {
		return User{}, err
	}
	if err := s.saveSession(ctx, Session{User: u}); err != nil {
		return User{}, err
	}
	s.log.Info("signed in", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Register creates an account without touching the session.
func (s *Store) Register(ctx context.Context, data SignUpData) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registerLocked(ctx, data)
}

func (s *Store) registerLocked(ctx context.Context, data SignUpData) (User, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return User{}, err
	}
	email := strings.TrimSpace(data.Email)
	for _, u := range users {
		if u.Email == email {
			return User{}, fmt.Errorf("%q: %w", email, ErrDuplicateEmail)
		}
	}

	u := User{
		ID:        s.newID("user"),
		Name:      data.Name,
		Email:     email,
		Phone:     data.Phone,
		Role:      data.Role,
		CreatedAt: s.now().UTC(),
	}
	if data.Vehicle != nil {
		v := *data.Vehicle
		u.Vehicle = &v
	}
	u.normalize()

	users = append(users, u)
	if err := s.saveUsers(ctx, users); err != nil {
		return User{}, err
	}

	s.publish(events.TopicUserRegistered, u.ID, events.UserRegisteredEvent{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         string(u.Role),
		RegisteredAt: s.timestamp(),
	})
	return u, nil
}

// SignUp registers a new account and makes it the current session.
func (s *Store) SignUp(ctx context.Context, data SignUpData) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.registerLocked(ctx, data)
	if err != nil {
		return User{}, err
	}
	if err := s.saveSession(ctx, Session{User: u}); err != nil {
		return User{}, err
	}
	s.log.Info("signed up", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}
