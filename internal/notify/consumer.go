// Package notify turns seat and status events into live ride updates.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rideconnect/internal/events"
	"rideconnect/internal/store"
)

// Broadcaster fans a message out to a ride's subscribers. *tracking.Hub satisfies it.
type Broadcaster interface {
	Broadcast(rideID string, msg any)
}

// Subscriber reads a topic in the background. *kafka.Client satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, topic, groupID string, handler func([]byte) error)
}

// RideUpdate is the message pushed to WebSocket clients.
type RideUpdate struct {
	RideID         string `json:"ride_id"`
	Event          string `json:"event"`
	AvailableSeats int    `json:"available_seats"`
	Status         string `json:"status"`
	TS             int64  `json:"ts"`
}

// Consumer forwards ride events to a Broadcaster.
type Consumer struct {
	sub Subscriber
	out Broadcaster
	log *zap.Logger
	now func() time.Time
}

// NewConsumer creates a consumer.
func NewConsumer(sub Subscriber, out Broadcaster, log *zap.Logger) *Consumer {
	return &Consumer{sub: sub, out: out, log: log.With(zap.String("component", "notify")), now: time.Now}
}

// Start subscribes to the seat and status topics.
func (c *Consumer) Start(ctx context.Context) {
	for _, topic := range []string{events.TopicRideBooked, events.TopicBookingCancelled, events.TopicRideStatusChanged} {
		topic := topic
		c.sub.Subscribe(ctx, topic, "notify-"+topic, func(data []byte) error {
			return c.Handle(topic, data)
		})
	}
}

// Handle decodes one event and broadcasts the resulting update.
func (c *Consumer) Handle(topic string, data []byte) error {
	var up RideUpdate
	switch topic {
	case events.TopicRideBooked, events.TopicBookingCancelled:
		var ev events.SeatsChangedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", topic, err)
		}
		up = RideUpdate{RideID: ev.RideID, AvailableSeats: ev.AvailableSeats, Status: ev.Status}
	case events.TopicRideStatusChanged:
		var ev events.RideStatusChangedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", topic, err)
		}
		up = RideUpdate{RideID: ev.RideID, AvailableSeats: ev.AvailableSeats, Status: ev.To}
	default:
		return fmt.Errorf("unexpected topic %s", topic)
	}
	up.Event = topic
	up.TS = c.now().Unix()

	c.log.Debug("ride update", zap.String("topic", topic), zap.String("ride_id", up.RideID),
		zap.Int("available_seats", up.AvailableSeats))
	c.out.Broadcast(up.RideID, up)
	return nil
}

// Publish handles an event in-process, for deployments without Kafka.
// Topics the consumer does not track are ignored.
func (c *Consumer) Publish(_ context.Context, topic, _ string, value any) error {
	switch topic {
	case events.TopicRideBooked, events.TopicBookingCancelled, events.TopicRideStatusChanged:
	default:
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Handle(topic, data)
}

// Snapshot is the greeting sent to a new subscriber of ride.
func Snapshot(ride store.Ride) RideUpdate {
	return RideUpdate{
		RideID:         ride.ID,
		Event:          "snapshot",
		AvailableSeats: ride.AvailableSeats,
		Status:         string(ride.Status),
		TS:             time.Now().Unix(),
	}
}
