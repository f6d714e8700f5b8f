package rides

import (
	"errors"
	"strings"

	"rideconnect/internal/store"
	"rideconnect/pkg/validation"
)

// PostRideRequest is the body for POST /api/rides/post.
type PostRideRequest struct {
	Source       string  `json:"source"`
	Destination  string  `json:"destination"`
	Date         string  `json:"date"`
	Time         string  `json:"time"`
	Duration     string  `json:"duration,omitempty"`
	PricePerSeat float64 `json:"pricePerSeat"`
	Seats        int     `json:"availableSeats"`
}

// Validate checks the request and converts it to store input for driver.
func (r PostRideRequest) Validate(driver store.User) (store.RideData, error) {
	if !validation.ValidatePlace(r.Source) || !validation.ValidatePlace(r.Destination) {
		return store.RideData{}, errors.New("source and destination are required")
	}
	if strings.EqualFold(strings.TrimSpace(r.Source), strings.TrimSpace(r.Destination)) {
		return store.RideData{}, errors.New("source and destination must differ")
	}
	if !validation.ValidateDate(r.Date) {
		return store.RideData{}, errors.New("date must be YYYY-MM-DD")
	}
	if !validation.ValidateClock(r.Time) {
		return store.RideData{}, errors.New("time must be HH:MM")
	}
	if !validation.ValidateSeats(r.Seats) {
		return store.RideData{}, errors.New("seats must be 1-16")
	}
	if v, ok := driver.Driver(); ok && v != nil && r.Seats > v.Capacity {
		return store.RideData{}, errors.New("seats exceed vehicle capacity")
	}
	if !validation.ValidatePrice(r.PricePerSeat) {
		return store.RideData{}, errors.New("price must not be negative")
	}
	return store.RideData{
		DriverID:   driver.ID,
		DriverName: driver.Name,
		From:       strings.TrimSpace(r.Source),
		To:         strings.TrimSpace(r.Destination),
		Date:       r.Date,
		Time:       r.Time,
		Duration:   strings.TrimSpace(r.Duration),
		Seats:      r.Seats,
		Price:      r.PricePerSeat,
	}, nil
}

// BookingStatus is the passenger-facing state of a booking.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
)

// BookingView is one entry of GET /api/bookings/my-bookings.
type BookingView struct {
	RideID      string        `json:"id"`
	DriverName  string        `json:"driverName"`
	Source      string        `json:"source"`
	Destination string        `json:"destination"`
	Date        string        `json:"date"`
	Time        string        `json:"time"`
	Status      BookingStatus `json:"status"`
	Price       float64       `json:"price"`
	Seats       int           `json:"seats"`
}

// NewBookingView derives a passenger's booking from the ride that holds it.
// Every booking is a single seat.
func NewBookingView(r store.Ride) BookingView {
	status := BookingConfirmed
	switch r.Status {
	case store.RideCancelled:
		status = BookingCancelled
	case store.RideCompleted:
		status = BookingCompleted
	}
	return BookingView{
		RideID:      r.ID,
		DriverName:  r.DriverName,
		Source:      r.From,
		Destination: r.To,
		Date:        r.Date,
		Time:        r.Time,
		Status:      status,
		Price:       r.Price,
		Seats:       1,
	}
}

// BookingResponse is returned by POST /api/bookings/book.
type BookingResponse struct {
	RideID         string `json:"rideId"`
	AvailableSeats int    `json:"availableSeats"`
	Status         string `json:"status"`
}
