package store

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"rideconnect/internal/events"
)

// GetRide returns the ride with the given id.
func (s *Store) GetRide(ctx context.Context, id string) (Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rides, err := s.loadRides(ctx)
	if err != nil {
		return Ride{}, err
	}
	if i := indexRide(rides, id); i >= 0 {
		return rides[i], nil
	}
	return Ride{}, fmt.Errorf("ride %s: %w", id, ErrNotFound)
}

// CreateRide adds an active ride with every seat available.
func (s *Store) CreateRide(ctx context.Context, data RideData) (Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rides, err := s.loadRides(ctx)
	if err != nil {
		return Ride{}, err
	}
	seats := max(data.Seats, 0)
	r := Ride{
		ID:             s.newID("ride"),
		DriverID:       data.DriverID,
		DriverName:     data.DriverName,
		From:           data.From,
		To:             data.To,
		Date:           data.Date,
		Time:           data.Time,
		Duration:       data.Duration,
		Seats:          seats,
		AvailableSeats: seats,
		Price:          data.Price,
		Passengers:     []string{},
		Status:         RideActive,
	}
	rides = append(rides, r)
	if err := s.saveRides(ctx, rides); err != nil {
		return Ride{}, err
	}

	s.log.Info("ride created", zap.String("ride_id", r.ID), zap.String("driver_id", r.DriverID), zap.Int("seats", seats))
	s.publish(events.TopicRideCreated, r.ID, events.RideCreatedEvent{
		RideID: r.ID, DriverID: r.DriverID,
		From: r.From, To: r.To, Date: r.Date,
		Seats: r.Seats, Price: r.Price,
	})
	return r, nil
}

// BookRide gives passengerID one seat on the ride. It is the only path that
// adds passengers, and keeps AvailableSeats == Seats - len(Passengers).
func (s *Store) BookRide(ctx context.Context, rideID, passengerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rides, err := s.loadRides(ctx)
	if err != nil {
		return err
	}
	i := indexRide(rides, rideID)
	if i < 0 {
		return fmt.Errorf("ride %s: %w", rideID, ErrNotFound)
	}
	r := &rides[i]
	if r.AvailableSeats <= 0 {
		return fmt.Errorf("ride %s: %w", rideID, ErrNoSeats)
	}
	if r.HasPassenger(passengerID) {
		return fmt.Errorf("ride %s: %w", rideID, ErrAlreadyBooked)
	}
	if r.Status != RideActive {
		return fmt.Errorf("ride %s: %w", rideID, ErrRideClosed)
	}

	r.Passengers = append(r.Passengers, passengerID)
	r.AvailableSeats--
	if err := s.saveRides(ctx, rides); err != nil {
		return err
	}

	s.log.Info("ride booked", zap.String("ride_id", rideID), zap.String("passenger_id", passengerID),
		zap.Int("available_seats", r.AvailableSeats))
	s.publish(events.TopicRideBooked, rideID, s.seatsEvent(*r, passengerID))
	return nil
}

// CancelBooking releases passengerID's seat on the ride.
func (s *Store) CancelBooking(ctx context.Context, rideID, passengerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rides, err := s.loadRides(ctx)
	if err != nil {
		return err
	}
	i := indexRide(rides, rideID)
	if i < 0 {
		return fmt.Errorf("ride %s: %w", rideID, ErrNotFound)
	}
	r := &rides[i]
	if !r.HasPassenger(passengerID) {
		return fmt.Errorf("ride %s: %w", rideID, ErrNotBooked)
	}
	if r.Status != RideActive {
		return fmt.Errorf("ride %s: %w", rideID, ErrRideClosed)
	}

	r.Passengers = slices.DeleteFunc(r.Passengers, func(p string) bool { return p == passengerID })
	r.AvailableSeats = r.Seats - len(r.Passengers)
	if err := s.saveRides(ctx, rides); err != nil {
		return err
	}

	s.log.Info("booking cancelled", zap.String("ride_id", rideID), zap.String("passenger_id", passengerID))
	s.publish(events.TopicBookingCancelled, rideID, s.seatsEvent(*r, passengerID))
	return nil
}

// CancelRide moves an active ride to cancelled.
func (s *Store) CancelRide(ctx context.Context, id string) (Ride, error) {
	return s.transition(ctx, id, RideCancelled)
}

// CompleteRide moves an active ride to completed.
func (s *Store) CompleteRide(ctx context.Context, id string) (Ride, error) {
	return s.transition(ctx, id, RideCompleted)
}

func (s *Store) transition(ctx context.Context, id string, next RideStatus) (Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rides, err := s.loadRides(ctx)
	if err != nil {
		return Ride{}, err
	}
	i := indexRide(rides, id)
	if i < 0 {
		return Ride{}, fmt.Errorf("ride %s: %w", id, ErrNotFound)
	}
	r := &rides[i]
	prev := r.Status
	if !prev.CanTransitionTo(next) {
		return Ride{}, fmt.Errorf("ride %s %s -> %s: %w", id, prev, next, ErrInvalidTransition)
	}
	r.Status = next
	if err := s.saveRides(ctx, rides); err != nil {
		return Ride{}, err
	}

	s.log.Info("ride status changed", zap.String("ride_id", id), zap.String("from", string(prev)), zap.String("to", string(next)))
	s.publish(events.TopicRideStatusChanged, id, events.RideStatusChangedEvent{
		RideID:         id,
		From:           string(prev),
		To:             string(next),
		AvailableSeats: r.AvailableSeats,
		OccurredAt:     s.timestamp(),
	})
	return *r, nil
}

// SearchRides returns bookable rides matching f.
func (s *Store) SearchRides(ctx context.Context, f RideFilter) ([]Ride, error) {
	return s.filterRides(ctx, f.match)
}

// RidesByDriver returns the rides posted by driverID.
func (s *Store) RidesByDriver(ctx context.Context, driverID string) ([]Ride, error) {
	return s.filterRides(ctx, func(r Ride) bool { return r.DriverID == driverID })
}

// BookingsOf returns the rides on which passengerID holds a seat.
func (s *Store) BookingsOf(ctx context.Context, passengerID string) ([]Ride, error) {
	return s.filterRides(ctx, func(r Ride) bool { return r.HasPassenger(passengerID) })
}

func (s *Store) filterRides(ctx context.Context, keep func(Ride) bool) ([]Ride, error) {
	rides, err := s.ListRides(ctx)
	if err != nil {
		return nil, err
	}
	out := []Ride{}
	for _, r := range rides {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) seatsEvent(r Ride, passengerID string) events.SeatsChangedEvent {
	return events.SeatsChangedEvent{
		RideID:         r.ID,
		PassengerID:    passengerID,
		AvailableSeats: r.AvailableSeats,
		Status:         string(r.Status),
		OccurredAt:     s.timestamp(),
	}
}

func indexRide(rides []Ride, id string) int {
	return slices.IndexFunc(rides, func(r Ride) bool { return r.ID == id })
}
