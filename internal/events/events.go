package events

// Topic names.
const (
	TopicUserRegistered    = "user.registered"
	TopicRideCreated       = "ride.created"
	TopicRideBooked        = "ride.booked"
	TopicBookingCancelled  = "booking.cancelled"
	TopicRideStatusChanged = "ride.status_changed"
)

// UserRegisteredEvent is published to user.registered.
type UserRegisteredEvent struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	RegisteredAt string `json:"registered_at"`
}

// RideCreatedEvent is published to ride.created.
type RideCreatedEvent struct {
	RideID   string  `json:"ride_id"`
	DriverID string  `json:"driver_id"`
	From     string  `json:"from"`
	To       string  `json:"to"`
	Date     string  `json:"date"`
	Seats    int     `json:"seats"`
	Price    float64 `json:"price"`
}

// SeatsChangedEvent is published to ride.booked and booking.cancelled.
type SeatsChangedEvent struct {
	RideID         string `json:"ride_id"`
	PassengerID    string `json:"passenger_id"`
	AvailableSeats int    `json:"available_seats"`
	Status         string `json:"status"`
	OccurredAt     string `json:"occurred_at"`
}

// RideStatusChangedEvent is published to ride.status_changed.
type RideStatusChangedEvent struct {
	RideID         string `json:"ride_id"`
	From           string `json:"from"`
	To             string `json:"to"`
	AvailableSeats int    `json:"available_seats"`
	OccurredAt     string `json:"occurred_at"`
}
