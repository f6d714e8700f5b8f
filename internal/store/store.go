// Package store is the RideConnect record store: users, rides and the
// current-session pointer, each kept as one JSON document in a key/value
// Backend and rewritten in full on every mutation.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Storage keys.
const (
	UsersKey       = "rideconnect_users"
	RidesKey       = "rideconnect_rides"
	CurrentUserKey = "rideconnect_current_user"
)

// Seeded administrator.
const (
	AdminID              = "admin-1"
	AdminEmail           = "admin@rideconnect.com"
	DefaultAdminPassword = "admin123"
)

// Publisher delivers domain events. *kafka.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// Store owns the user, ride and session collections.
type Store struct {
	backend   Backend
	publisher Publisher
	log       *zap.Logger
	now       func() time.Time
	newID     func(prefix string) string
	adminHash []byte
	adminErr  error

	// outbox feeds a single publishing goroutine, so events leave in the
	// order their mutations were saved.
	outbox   chan outboxEvent
	drained  chan struct{}
	shutdown bool

	// mu serializes every read-modify-write against the backend.
	mu sync.Mutex
}

type outboxEvent struct {
	topic string
	key   string
	value any
}

// outboxSize bounds queued events; mutations block once it is full.
const outboxSize = 256

// Option configures a Store.
type Option func(*Store)

// WithPublisher sends domain events to p after each successful mutation.
func WithPublisher(p Publisher) Option { return func(s *Store) { s.publisher = p } }

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithAdminPassword replaces the fixed administrator password. A password
// bcrypt cannot hash makes Init (and every sign-in) fail.
func WithAdminPassword(pw string) Option {
	return func(s *Store) { s.adminHash, s.adminErr = hashPassword(pw) }
}

// New builds a store over b. It performs no I/O; call Init to seed.
func New(b Backend, opts ...Option) *Store {
	s := &Store{
		backend: b,
		log:     zap.NewNop(),
		now:     time.Now,
		newID:   func(prefix string) string { return prefix + "-" + uuid.NewString() },
	}
	for _, o := range opts {
		o(s)
	}
	if s.adminHash == nil && s.adminErr == nil {
		s.adminHash, s.adminErr = hashPassword(DefaultAdminPassword)
	}
	if s.publisher != nil {
		s.outbox = make(chan outboxEvent, outboxSize)
		s.drained = make(chan struct{})
		go s.drain()
	}
	return s
}

func hashPassword(pw string) ([]byte, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("admin password: %w", err)
	}
	return h, nil
}

// Close stops accepting events and waits until queued ones are published.
func (s *Store) Close() {
	s.mu.Lock()
	if s.outbox == nil || s.shutdown {
		s.mu.Unlock()
		return
	}
	s.shutdown = true
	close(s.outbox)
	s.mu.Unlock()
	<-s.drained
}

// Init seeds the administrator record when none exists. Repeated calls are no-ops.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seedLocked(ctx)
}

func (s *Store) seedLocked(ctx context.Context) error {
	if s.adminErr != nil {
		return s.adminErr
	}
	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Email == AdminEmail {
			return nil
		}
	}
	users = append(users, User{
		ID:        AdminID,
		Name:      "Admin",
		Email:     AdminEmail,
		Phone:     "0000000000",
		Role:      RoleAdmin,
		CreatedAt: s.now().UTC(),
		Verified:  true,
	})
	if err := s.saveUsers(ctx, users); err != nil {
		return err
	}
	s.log.Info("seeded administrator", zap.String("email", AdminEmail))
	return nil
}

// ListUsers returns all users in insertion order.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUsers(ctx)
}

// ListRides returns all rides in insertion order.
func (s *Store) ListRides(ctx context.Context) ([]Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadRides(ctx)
}

// ---- persistence helpers; callers hold s.mu ----

func (s *Store) loadUsers(ctx context.Context) ([]User, error) {
	users := []User{}
	if err := s.load(ctx, UsersKey, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) saveUsers(ctx context.Context, users []User) error {
	return s.save(ctx, UsersKey, users)
}

func (s *Store) loadRides(ctx context.Context) ([]Ride, error) {
	rides := []Ride{}
	if err := s.load(ctx, RidesKey, &rides); err != nil {
		return nil, err
	}
	for i := range rides {
		if rides[i].Passengers == nil {
			rides[i].Passengers = []string{}
		}
	}
	return rides, nil
}

func (s *Store) saveRides(ctx context.Context, rides []Ride) error {
	return s.save(ctx, RidesKey, rides)
}

func (s *Store) loadSession(ctx context.Context) (*Session, error) {
	raw, err := s.backend.Get(ctx, CurrentUserKey)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", CurrentUserKey, err)
	}
	if raw == nil {
		return nil, nil
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode %s: %w", CurrentUserKey, err)
	}
	return &sess, nil
}

func (s *Store) saveSession(ctx context.Context, sess Session) error {
	return s.save(ctx, CurrentUserKey, sess)
}

func (s *Store) load(ctx context.Context, key string, dst any) error {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// publish queues an event for the outbox worker. Callers hold mu, so queue
// order is save order.
func (s *Store) publish(topic, key string, ev any) {
	if s.outbox == nil || s.shutdown {
		return
	}
	s.outbox <- outboxEvent{topic: topic, key: key, value: ev}
}

// drain publishes queued events one at a time; failures are only logged.
func (s *Store) drain() {
	defer close(s.drained)
	for ev := range s.outbox {
		if err := s.publisher.Publish(context.Background(), ev.topic, ev.key, ev.value); err != nil {
			s.log.Warn("publish failed", zap.String("topic", ev.topic), zap.String("key", ev.key), zap.Error(err))
		}
	}
}

func (s *Store) timestamp() string { return s.now().UTC().Format(time.RFC3339) }
