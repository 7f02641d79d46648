// Package ordernumber issues human-readable order codes of the form
// Order-YYYYMMDD-NNNNNN.
package ordernumber

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	prefix      = "Order"
	maxAttempts = 5
	sequenceMod = 1_000_000
	field       = "order_number"
)

// Counter reports how many stored orders already use a value for field.
type Counter interface {
	CountByField(ctx context.Context, field string, value any) (int64, error)
}

// Generator draws random daily sequences and checks them against the store.
type Generator struct {
	counter Counter
	now     func() time.Time
	draw    func() int
}

// Option customizes a Generator.
type Option func(*Generator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithSequence overrides the random sequence source.
func WithSequence(draw func() int) Option {
	return func(g *Generator) { g.draw = draw }
}

// New builds a Generator that checks candidates through counter.
func New(counter Counter, opts ...Option) *Generator {
	g := &Generator{
		counter: counter,
		now:     time.Now,
		draw:    func() int { return rand.IntN(sequenceMod) },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns an order number not yet present in the store. After
// maxAttempts collisions it falls back to the trailing six digits of the
// current millisecond timestamp without checking again. Store errors are
// returned as is so the caller never persists an order without a number.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	now := g.now().UTC()
	day := now.Format("20060102")

	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := format(day, g.draw())
		count, err := g.counter.CountByField(ctx, field, candidate)
		if err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return format(day, int(now.UnixMilli()%sequenceMod)), nil
}

func format(day string, seq int) string {
	return fmt.Sprintf("%s-%s-%06d", prefix, day, seq%sequenceMod)
}
