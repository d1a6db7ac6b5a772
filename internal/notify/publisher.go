package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	EventSubscriptionCreated = "subscription-created"
	EventSubscriptionUpdated = "subscription-updated"
)

// EventStreamKey is the Redis stream lifecycle events are appended to.
const EventStreamKey = "subscription_events"

// Event is a lifecycle notification carrying the projected view as returned
// to the caller.
type Event struct {
	Type           string    `json:"type"`
	SubscriptionID int64     `json:"subscription_id"`
	View           any       `json:"view"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewEvent(eventType string, subscriptionID int64, view any) Event {
	return Event{
		Type:           eventType,
		SubscriptionID: subscriptionID,
		View:           view,
		Timestamp:      time.Now().UTC(),
	}
}

// Publisher delivers lifecycle events to interested subsystems.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// RedisPublisher appends lifecycle events to a Redis stream for external
// consumers (audit, schedulers).
type RedisPublisher struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisPublisher(client *redis.Client, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling lifecycle event: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: EventStreamKey,
		Values: map[string]any{
			"type":            ev.Type,
			"subscription_id": ev.SubscriptionID,
			"payload":         string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("appending to event stream: %w", err)
	}

	p.logger.Info("lifecycle event published",
		"type", ev.Type,
		"subscription_id", ev.SubscriptionID,
	)
	return nil
}

// MultiPublisher fans an event out to several publishers; every publisher is
// attempted even when an earlier one fails.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
