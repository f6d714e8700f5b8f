// Package apiclient talks to the RideConnect REST API on behalf of the
// signed-in session.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"rideconnect/internal/payments"
	"rideconnect/internal/rides"
	"rideconnect/internal/store"
	"rideconnect/internal/users"
)

// ErrUnauthorized is returned after the server rejects the session token.
// The stored session has already been cleared when it is returned.
var ErrUnauthorized = errors.New("session expired, please sign in again")

// genericMessage is used when an error response carries no message.
const genericMessage = "something went wrong, please try again"

// APIError is a non-2xx response other than 401.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// SessionStore holds the signed-in user and token. *store.Store satisfies it.
type SessionStore interface {
	Session(ctx context.Context) (*store.Session, error)
	SetSession(ctx context.Context, sess store.Session) error
	SignOut(ctx context.Context) error
}

// Client is a typed client for the REST API.
type Client struct {
	base     string
	http     *http.Client
	sessions SessionStore
	log      *zap.Logger
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:8080/api.
func New(baseURL string, sessions SessionStore, log *zap.Logger) *Client {
	return &Client{
		base:     strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		sessions: sessions,
		log:      log.With(zap.String("component", "apiclient")),
	}
}

// ---- Auth ----

// Login authenticates and stores the returned user and token as the session.
func (c *Client) Login(ctx context.Context, email, password string) (store.User, error) {
	var out users.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", users.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return store.User{}, err
	}
	return c.keep(ctx, out)
}

// Register creates an account and stores the returned user and token as the session.
func (c *Client) Register(ctx context.Context, req users.RegisterRequest) (store.User, error) {
	var out users.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &out); err != nil {
		return store.User{}, err
	}
	return c.keep(ctx, out)
}

func (c *Client) keep(ctx context.Context, out users.AuthResponse) (store.User, error) {
	if out.User == nil || out.Token == "" {
		return store.User{}, &APIError{Status: http.StatusOK, Message: "malformed auth response"}
	}
	if err := c.sessions.SetSession(ctx, store.Session{User: *out.User, Token: out.Token}); err != nil {
		return store.User{}, err
	}
	return *out.User, nil
}

// ---- Users ----

func (c *Client) Profile(ctx context.Context) (store.User, error) {
	var u store.User
	err := c.do(ctx, http.MethodGet, "/users/profile", nil, &u)
	return u, err
}

func (c *Client) UpdateProfile(ctx context.Context, req users.ProfileUpdate) (store.User, error) {
	var u store.User
	err := c.do(ctx, http.MethodPut, "/users/profile", req, &u)
	return u, err
}

// ---- Rides ----

func (c *Client) PostRide(ctx context.Context, req rides.PostRideRequest) (store.Ride, error) {
	var r store.Ride
	err := c.do(ctx, http.MethodPost, "/rides/post", req, &r)
	return r, err
}

// SearchRides queries active rides with free seats. Empty filter fields are omitted.
func (c *Client) SearchRides(ctx context.Context, f store.RideFilter) ([]store.Ride, error) {
	q := url.Values{}
	q.Set("source", f.From)
	q.Set("destination", f.To)
	if f.Date != "" {
		q.Set("date", f.Date)
	}
	if f.MinPrice != nil {
		q.Set("minPrice", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	var out []store.Ride
	err := c.do(ctx, http.MethodGet, "/rides/search?"+q.Encode(), nil, &out)
	return out, err
}

func (c *Client) AllRides(ctx context.Context) ([]store.Ride, error) {
	var out []store.Ride
	err := c.do(ctx, http.MethodGet, "/rides/all", nil, &out)
	return out, err
}

func (c *Client) MyRides(ctx context.Context) ([]store.Ride, error) {
	var out []store.Ride
	err := c.do(ctx, http.MethodGet, "/rides/my-rides", nil, &out)
	return out, err
}

func (c *Client) CancelRide(ctx context.Context, id string) (store.Ride, error) {
	var r store.Ride
	err := c.do(ctx, http.MethodPut, "/rides/"+url.PathEscape(id)+"/cancel", nil, &r)
	return r, err
}

func (c *Client) CompleteRide(ctx context.Context, id string) (store.Ride, error) {
	var r store.Ride
	err := c.do(ctx, http.MethodPut, "/rides/"+url.PathEscape(id)+"/complete", nil, &r)
	return r, err
}

// ---- Bookings ----

// Book reserves one seat on a ride.
func (c *Client) Book(ctx context.Context, rideID string) (rides.BookingResponse, error) {
	q := url.Values{"rideId": {rideID}, "seats": {"1"}}
	var out rides.BookingResponse
	err := c.do(ctx, http.MethodPost, "/bookings/book?"+q.Encode(), nil, &out)
	return out, err
}

func (c *Client) MyBookings(ctx context.Context) ([]rides.BookingView, error) {
	var out []rides.BookingView
	err := c.do(ctx, http.MethodGet, "/bookings/my-bookings", nil, &out)
	return out, err
}

func (c *Client) CancelBooking(ctx context.Context, rideID string) (rides.BookingView, error) {
	var out rides.BookingView
	err := c.do(ctx, http.MethodPut, "/bookings/"+url.PathEscape(rideID)+"/cancel", nil, &out)
	return out, err
}

// ---- Payments ----

func (c *Client) CreateOrder(ctx context.Context, rideID string) (payments.Order, error) {
	var o payments.Order
	err := c.do(ctx, http.MethodPost, "/payments/create-order", payments.CreateOrderRequest{RideID: rideID}, &o)
	return o, err
}

func (c *Client) VerifyPayment(ctx context.Context, req payments.VerifyRequest) (payments.Transaction, error) {
	var tx payments.Transaction
	err := c.do(ctx, http.MethodPost, "/payments/verify", req, &tx)
	return tx, err
}

func (c *Client) PaymentHistory(ctx context.Context) ([]payments.Transaction, error) {
	var out []payments.Transaction
	err := c.do(ctx, http.MethodGet, "/payments/history", nil, &out)
	return out, err
}

// ---- Admin ----

func (c *Client) AdminUsers(ctx context.Context) ([]store.User, error) {
	var out []store.User
	err := c.do(ctx, http.MethodGet, "/admin/users", nil, &out)
	return out, err
}

func (c *Client) AdminRides(ctx context.Context) ([]store.Ride, error) {
	var out []store.Ride
	err := c.do(ctx, http.MethodGet, "/admin/rides", nil, &out)
	return out, err
}

func (c *Client) VerifyUser(ctx context.Context, id string) (store.User, error) {
	var u store.User
	err := c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(id)+"/verify", nil, &u)
	return u, err
}

func (c *Client) BlockUser(ctx context.Context, id, reason string) (store.User, error) {
	var u store.User
	err := c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(id)+"/block", users.BlockRequest{Reason: reason}, &u)
	return u, err
}

func (c *Client) UnblockUser(ctx context.Context, id string) (store.User, error) {
	var u store.User
	err := c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(id)+"/unblock", nil, &u)
	return u, err
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), nil, nil)
}

// do sends one request. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	sess, err := c.sessions.Session(ctx)
	if err != nil {
		return err
	}
	if sess != nil && sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.log.Info("token rejected, clearing session", zap.String("path", path))
		if err := c.sessions.SignOut(ctx); err != nil {
			return errors.Join(ErrUnauthorized, err)
		}
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(r, 1<<16))
	if json.Unmarshal(data, &body) != nil {
		return genericMessage
	}
	switch {
	case body.Message != "":
		return body.Message
	case body.Error != "":
		return body.Error
	}
	return genericMessage
}
