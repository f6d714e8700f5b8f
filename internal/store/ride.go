package store

import (
	"slices"
	"strings"
)

// RideStatus enumerates the lifecycle states of a ride.
type RideStatus string

const (
	RideActive    RideStatus = "active"
	RideCompleted RideStatus = "completed"
	RideCancelled RideStatus = "cancelled"
)

// CanTransitionTo reports whether status may move to next.
// Only active rides move, and never back to active.
func (s RideStatus) CanTransitionTo(next RideStatus) bool {
	return s == RideActive && (next == RideCompleted || next == RideCancelled)
}

// Ride is a trip offered by a driver.
type Ride struct {
	ID             string     `json:"id"`
	DriverID       string     `json:"driverId"`
	DriverName     string     `json:"driverName"`
	From           string     `json:"from"`
	To             string     `json:"to"`
	Date           string     `json:"date"`
	Time           string     `json:"time"`
	Duration       string     `json:"duration"`
	Seats          int        `json:"seats"`
	AvailableSeats int        `json:"availableSeats"`
	Price          float64    `json:"price"`
	Passengers     []string   `json:"passengers"`
	Status         RideStatus `json:"status"`
}

// HasPassenger reports whether passengerID holds a seat on the ride.
func (r Ride) HasPassenger(passengerID string) bool {
	return slices.Contains(r.Passengers, passengerID)
}

// RideData is the driver-supplied part of a new ride.
type RideData struct {
	DriverID   string
	DriverName string
	From       string
	To         string
	Date       string
	Time       string
	Duration   string
	Seats      int
	Price      float64
}

// RideFilter narrows SearchRides. Empty fields match everything.
type RideFilter struct {
	From     string
	To       string
	Date     string
	MinPrice *float64
}

func (f RideFilter) match(r Ride) bool {
	if r.Status != RideActive || r.AvailableSeats <= 0 {
		return false
	}
	if f.From != "" && !strings.Contains(strings.ToLower(r.From), strings.ToLower(f.From)) {
		return false
	}
	if f.To != "" && !strings.Contains(strings.ToLower(r.To), strings.ToLower(f.To)) {
		return false
	}
	if f.Date != "" && r.Date != f.Date {
		return false
	}
	if f.MinPrice != nil && r.Price < *f.MinPrice {
		return false
	}
	return true
}
