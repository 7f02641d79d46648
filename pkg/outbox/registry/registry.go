// Package registry routes outbox rows to Pub/Sub topics and decodes their
// typed payloads before they are published.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/checkout-reconciler/pkg/config"
	"github.com/angelmondragon/checkout-reconciler/pkg/db/models"
	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
	"github.com/angelmondragon/checkout-reconciler/pkg/outbox"
	"github.com/angelmondragon/checkout-reconciler/pkg/outbox/payloads"
)

// ErrPermanent marks rows that no amount of retrying will publish.
var ErrPermanent = errors.New("outbox event is not publishable")

// Permanent wraps err with ErrPermanent.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// Route is where one event type is published and how its data decodes.
type Route struct {
	EventType enums.OutboxEventType
	Topic     string
	decode    func(json.RawMessage) (any, error)
}

// Resolved is an outbox row ready to publish.
type Resolved struct {
	Route    Route
	Envelope outbox.Envelope
	Payload  any
}

type Registry struct {
	routes map[enums.OutboxEventType]Route
}

func routeFor[T any](eventType enums.OutboxEventType, topic string) Route {
	return Route{
		EventType: eventType,
		Topic:     topic,
		decode: func(raw json.RawMessage) (any, error) {
			v := new(T)
			if err := json.Unmarshal(raw, v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// New routes order events to the orders topic and payment events to the
// payments topic.
func New(cfg config.PubSubConfig) (*Registry, error) {
	switch {
	case cfg.OrdersTopic == "":
		return nil, errors.New("orders topic is required")
	case cfg.PaymentsTopic == "":
		return nil, errors.New("payments topic is required")
	}
	routes := []Route{
		routeFor[payloads.OrderCreatedEvent](enums.EventOrderCreated, cfg.OrdersTopic),
		routeFor[payloads.OrderAbandonedEvent](enums.EventOrderAbandoned, cfg.OrdersTopic),
		routeFor[payloads.PaymentStatusChangedEvent](enums.EventPaymentStatusChanged, cfg.PaymentsTopic),
	}
	r := &Registry{routes: make(map[enums.OutboxEventType]Route, len(routes))}
	for _, route := range routes {
		r.routes[route.EventType] = route
	}
	return r, nil
}

// Topics lists every topic a route publishes to.
func (r *Registry) Topics() []string {
	seen := map[string]bool{}
	var topics []string
	for _, route := range r.routes {
		if !seen[route.Topic] {
			seen[route.Topic] = true
			topics = append(topics, route.Topic)
		}
	}
	return topics
}

// Resolve checks the row against its route and decodes the payload. Every
// error it returns is permanent.
func (r *Registry) Resolve(row models.OutboxEvent) (*Resolved, error) {
	route, ok := r.routes[row.EventType]
	if !ok {
		return nil, Permanent(fmt.Errorf("no route for event type %q", row.EventType))
	}
	if want := row.EventType.Aggregate(); row.AggregateType != want {
		return nil, Permanent(fmt.Errorf("%s row has aggregate %q, want %q", row.EventType, row.AggregateType, want))
	}
	if row.AggregateID == "" {
		return nil, Permanent(errors.New("row has no aggregate_id"))
	}

	env, err := outbox.DecodeEnvelope(row.Payload)
	if err != nil {
		return nil, Permanent(err)
	}
	payload, err := route.decode(env.Data)
	if err != nil {
		return nil, Permanent(fmt.Errorf("decode %s data: %w", row.EventType, err))
	}
	return &Resolved{Route: route, Envelope: env, Payload: payload}, nil
}
