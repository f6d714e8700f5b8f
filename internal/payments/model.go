package payments

// OrderStatus is the lifecycle of a payment order.
type OrderStatus string

const (
	OrderCreated OrderStatus = "created"
	OrderPaid    OrderStatus = "paid"
	OrderFailed  OrderStatus = "failed"
)

// TransactionStatus records the outcome of one verification attempt.
type TransactionStatus string

const (
	TransactionPending TransactionStatus = "PENDING"
	TransactionSuccess TransactionStatus = "SUCCESS"
	TransactionFailed  TransactionStatus = "FAILED"
)

// Currency is the only currency orders are raised in.
const Currency = "INR"

// Order is a request to pay for one booked seat.
type Order struct {
	ID          string      `json:"orderId"`
	RideID      string      `json:"rideId"`
	PassengerID string      `json:"passengerId"`
	Amount      float64     `json:"amount"`
	Currency    string      `json:"currency"`
	Status      OrderStatus `json:"status"`
	Description string      `json:"description"`
	CreatedAt   string      `json:"createdAt"`
}

// Transaction is a payment against an order: PENDING while the order is
// open, then one SUCCESS or FAILED entry per verification attempt.
// PaymentID is the gateway's payment id, empty while pending.
type Transaction struct {
	ID          string            `json:"id"`
	PaymentID   string            `json:"transactionId"`
	OrderID     string            `json:"orderId"`
	RideID      string            `json:"rideId"`
	PassengerID string            `json:"passengerId"`
	Date        string            `json:"date"`
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency"`
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description,omitempty"`
}

// CreateOrderRequest is the body for POST /api/payments/create-order.
// A booking is identified by its ride, so bookingId is accepted as an alias.
type CreateOrderRequest struct {
	RideID    string `json:"rideId,omitempty"`
	BookingID string `json:"bookingId,omitempty"`
}

// Ride returns the ride being paid for.
func (r CreateOrderRequest) Ride() string {
	if r.RideID != "" {
		return r.RideID
	}
	return r.BookingID
}

// VerifyRequest is the body for POST /api/payments/verify.
type VerifyRequest struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}
