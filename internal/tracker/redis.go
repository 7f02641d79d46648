package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const primaryKind = "order"

// KeyValueStore is the slice of the redis client the tracker needs.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	TrackerKey(kind, id string) string
}

// Redis shares tracker records across instances. Each record is stored as
// JSON under its order id; secondary keys hold the order id.
type Redis struct {
	store KeyValueStore
	ttl   time.Duration
	now   func() time.Time
}

// NewRedis builds a redis-backed tracker.
func NewRedis(store KeyValueStore, ttl time.Duration) *Redis {
	return &Redis{store: store, ttl: ttl, now: time.Now}
}

// Get implements Tracker.
func (r *Redis) Get(ctx context.Context, orderID string) (*Record, error) {
	raw, err := r.store.Get(ctx, r.store.TrackerKey(primaryKind, orderID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("tracker get: %w", err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("tracker decode: %w", err)
	}
	return &rec, nil
}

// Put implements Tracker. Empty fields keep their previous value.
func (r *Redis) Put(ctx context.Context, record Record) error {
	if record.OrderID == "" {
		return errors.New("tracker record requires an order id")
	}
	prev, err := r.Get(ctx, record.OrderID)
	switch {
	case err == nil:
		record = merge(*prev, record)
	case !errors.Is(err, ErrNotFound):
		return err
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = r.now()
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("tracker encode: %w", err)
	}
	if err := r.store.Set(ctx, r.store.TrackerKey(primaryKind, record.OrderID), payload, r.ttl); err != nil {
		return fmt.Errorf("tracker put: %w", err)
	}
	for _, kind := range []KeyKind{KeyTransaction, KeyInvoice} {
		v := record.secondary(kind)
		if v == "" {
			continue
		}
		if err := r.store.Set(ctx, r.store.TrackerKey(string(kind), v), record.OrderID, r.ttl); err != nil {
			return fmt.Errorf("tracker index %s: %w", kind, err)
		}
	}
	return nil
}

// FindBySecondaryKey implements Tracker.
func (r *Redis) FindBySecondaryKey(ctx context.Context, kind KeyKind, value string) (*Record, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	orderID, err := r.store.Get(ctx, r.store.TrackerKey(string(kind), value))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("tracker index get: %w", err)
	}
	return r.Get(ctx, orderID)
}
