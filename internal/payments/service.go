// Package payments raises orders for booked seats and verifies signed
// payment confirmations.
package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rideconnect/internal/store"
)

// Storage keys.
const (
	OrdersKey       = "rideconnect_orders"
	TransactionsKey = "rideconnect_transactions"
)

var (
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrOrderSettled     = errors.New("order already paid")
)

// RideSource looks up rides. *store.Store satisfies it.
type RideSource interface {
	GetRide(ctx context.Context, id string) (store.Ride, error)
}

// Service persists orders and transactions as JSON documents in a backend.
type Service struct {
	mu      sync.Mutex
	backend store.Backend
	rides   RideSource
	secret  []byte
	log     *zap.Logger
	now     func() time.Time
}

// NewService creates a payment service signing with secret.
func NewService(b store.Backend, rides RideSource, secret string, log *zap.Logger) *Service {
	return &Service{
		backend: b,
		rides:   rides,
		secret:  []byte(secret),
		log:     log.With(zap.String("component", "payments")),
		now:     time.Now,
	}
}

// Sign returns the hex HMAC-SHA256 of "orderID|paymentID" under secret.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// CreateOrder raises an order for passengerID's seat on rideID.
func (s *Service) CreateOrder(ctx context.Context, rideID, passengerID string) (Order, error) {
	ride, err := s.rides.GetRide(ctx, rideID)
	if err != nil {
		return Order{}, err
	}
	if !ride.HasPassenger(passengerID) {
		return Order{}, fmt.Errorf("ride %s: %w", rideID, store.ErrNotBooked)
	}
	if ride.Status == store.RideCancelled {
		return Order{}, fmt.Errorf("ride %s: %w", rideID, store.ErrRideClosed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var orders []Order
	if err := s.load(ctx, OrdersKey, &orders); err != nil {
		return Order{}, err
	}
	var txs []Transaction
	if err := s.load(ctx, TransactionsKey, &txs); err != nil {
		return Order{}, err
	}
	o := Order{
		ID:          "order_" + uuid.NewString(),
		RideID:      rideID,
		PassengerID: passengerID,
		Amount:      ride.Price,
		Currency:    Currency,
		Status:      OrderCreated,
		Description: fmt.Sprintf("Ride %s → %s", ride.From, ride.To),
		CreatedAt:   s.timestamp(),
	}
	orders = append(orders, o)
	txs = append(txs, s.newTransaction(o, "", TransactionPending))
	if err := s.save(ctx, OrdersKey, orders); err != nil {
		return Order{}, err
	}
	if err := s.save(ctx, TransactionsKey, txs); err != nil {
		return Order{}, err
	}
	s.log.Info("order created", zap.String("order_id", o.ID), zap.String("ride_id", rideID),
		zap.Float64("amount", o.Amount))
	return o, nil
}

// Verify checks the signature of a payment against passengerID's order and
// records the outcome, replacing the order's PENDING entry. A mismatch marks
// the order failed and returns ErrInvalidSignature; a failed order may be
// verified again.
func (s *Service) Verify(ctx context.Context, passengerID string, req VerifyRequest) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var orders []Order
	if err := s.load(ctx, OrdersKey, &orders); err != nil {
		return Transaction{}, err
	}
	i := -1
	for j := range orders {
		if orders[j].ID == req.OrderID && orders[j].PassengerID == passengerID {
			i = j
			break
		}
	}
	if i < 0 {
		return Transaction{}, fmt.Errorf("order %s: %w", req.OrderID, store.ErrNotFound)
	}
	o := &orders[i]
	if o.Status == OrderPaid {
		return Transaction{}, fmt.Errorf("order %s: %w", o.ID, ErrOrderSettled)
	}

	want := Sign(string(s.secret), req.OrderID, req.PaymentID)
	ok := hmac.Equal([]byte(want), []byte(req.Signature))

	tx := s.newTransaction(*o, req.PaymentID, TransactionSuccess)
	o.Status = OrderPaid
	if !ok {
		tx.Status = TransactionFailed
		o.Status = OrderFailed
	}

	var txs []Transaction
	if err := s.load(ctx, TransactionsKey, &txs); err != nil {
		return Transaction{}, err
	}
	txs = slices.DeleteFunc(txs, func(t Transaction) bool {
		return t.OrderID == o.ID && t.Status == TransactionPending
	})
	txs = append(txs, tx)
	if err := s.save(ctx, TransactionsKey, txs); err != nil {
		return Transaction{}, err
	}
	if err := s.save(ctx, OrdersKey, orders); err != nil {
		return Transaction{}, err
	}

	if !ok {
		s.log.Warn("payment signature mismatch", zap.String("order_id", o.ID))
		return tx, fmt.Errorf("order %s: %w", o.ID, ErrInvalidSignature)
	}
	s.log.Info("payment verified", zap.String("order_id", o.ID), zap.String("payment_id", req.PaymentID))
	return tx, nil
}

// History returns passengerID's transactions, newest first.
func (s *Service) History(ctx context.Context, passengerID string) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var txs []Transaction
	if err := s.load(ctx, TransactionsKey, &txs); err != nil {
		return nil, err
	}
	// Appends happen under the lock, so storage order is chronological.
	out := make([]Transaction, 0)
	for i := len(txs) - 1; i >= 0; i-- {
		if txs[i].PassengerID == passengerID {
			out = append(out, txs[i])
		}
	}
	return out, nil
}

func (s *Service) newTransaction(o Order, paymentID string, status TransactionStatus) Transaction {
	return Transaction{
		ID:          "txn_" + uuid.NewString(),
		PaymentID:   paymentID,
		OrderID:     o.ID,
		RideID:      o.RideID,
		PassengerID: o.PassengerID,
		Date:        s.timestamp(),
		Amount:      o.Amount,
		Currency:    o.Currency,
		Status:      status,
		Description: o.Description,
	}
}

func (s *Service) load(ctx context.Context, key string, dst any) error {
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

func (s *Service) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Service) timestamp() string { return s.now().UTC().Format(time.RFC3339) }
