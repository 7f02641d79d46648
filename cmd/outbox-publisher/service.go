package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-reconciler/pkg/config"
	"github.com/angelmondragon/checkout-reconciler/pkg/db/models"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
	"github.com/angelmondragon/checkout-reconciler/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.Resolved, error)
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config           config.OutboxConfig
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
}

// outcome is what happened to one outbox row in a batch.
type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeParked
)

type batchStats map[outcome]int

func (b batchStats) fields() map[string]any {
	return map[string]any{
		"published": b[outcomePublished],
		"retry":     b[outcomeRetry],
		"parked":    b[outcomeParked],
	}
}

// Service relays committed outbox rows to their Pub/Sub topics. Rows are
// claimed and marked inside one transaction per batch.
type Service struct {
	logg        *logger.Logger
	db          dbClient
	repo        outboxRepository
	pubsub      pubSubClient
	registry    registryResolver
	publisherFn publisherFactory
	batchSize   int
	maxAttempts int
	idle        time.Duration
	backoff     backoff
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher { return newGCPPublisher(params.PubSub.Publisher(topic)) }
	}
	idle := time.Duration(params.Config.PollIntervalMS) * time.Millisecond
	if idle <= 0 {
		idle = defaultPollInterval
	}
	return &Service{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		pubsub:      params.PubSub,
		registry:    params.Registry,
		publisherFn: factory,
		batchSize:   orDefault(params.Config.BatchSize, defaultBatchSize),
		maxAttempts: orDefault(params.Config.MaxAttempts, defaultMaxAttempts),
		idle:        idle,
		backoff:     backoff{base: idle, max: maxBackoff},
	}, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Run relays until ctx is canceled. An empty batch waits one poll interval;
// a failed batch waits with exponential backoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub not ready: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		processed, err := s.processBatch(ctx)

		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			wait = s.backoff.next()
		case processed:
			s.backoff.reset()
			continue
		default:
			s.backoff.reset()
			wait = withJitter(s.idle)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// processBatch reports whether any row was claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	stats := batchStats{}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		for _, row := range rows {
			result, err := s.relay(ctx, tx, row)
			if err != nil {
				return err
			}
			stats[result]++
		}
		return nil
	})
	total := stats[outcomePublished] + stats[outcomeRetry] + stats[outcomeParked]
	if err == nil && total > 0 {
		s.logg.Info(s.logg.WithFields(ctx, stats.fields()), "outbox batch relayed")
	}
	return total > 0, err
}

// relay publishes one row and records the result on it. Only bookkeeping
// failures are returned; publish failures are stored on the row.
func (s *Service) relay(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) (outcome, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID,
		"attempt_count": row.AttemptCount,
	})

	resolved, err := s.registry.Resolve(row)
	if err != nil {
		return s.park(ctx, tx, row, err)
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"topic":    resolved.Route.Topic,
		"event_id": resolved.Envelope.EventID,
	})

	err = s.publish(ctx, row, resolved)
	switch {
	case err == nil:
		if markErr := s.repo.MarkPublishedTx(tx, row.ID); markErr != nil {
			return 0, fmt.Errorf("mark %s published: %w", row.ID, markErr)
		}
		s.logg.Debug(ctx, "outbox event published")
		return outcomePublished, nil
	case registry.IsPermanent(err):
		return s.park(ctx, tx, row, err)
	case row.AttemptCount+1 >= s.maxAttempts:
		return s.park(ctx, tx, row, fmt.Errorf("gave up after %d attempts: %w", row.AttemptCount+1, err))
	}

	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "outbox publish failed, will retry")
	if markErr := s.repo.MarkFailedTx(tx, row.ID, err); markErr != nil {
		return 0, fmt.Errorf("mark %s failed: %w", row.ID, markErr)
	}
	return outcomeRetry, nil
}

// park stops retrying a row by setting its attempts to the limit. The row
// and its last error stay in place for inspection.
func (s *Service) park(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, cause error) (outcome, error) {
	s.logg.Error(ctx, "outbox event parked", cause)
	if err := s.repo.MarkTerminalTx(tx, row.ID, cause, s.maxAttempts); err != nil {
		return 0, fmt.Errorf("park %s: %w", row.ID, err)
	}
	return outcomeParked, nil
}

// publish sends the stored envelope unchanged. The aggregate id is the
// ordering key, so status changes of one payment stay in order.
func (s *Service) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.Resolved) error {
	topic := resolved.Route.Topic
	pub := s.publisherFn(topic)
	if pub == nil {
		return registry.Permanent(fmt.Errorf("no publisher for topic %s", topic))
	}

	ctx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data:        row.Payload,
		OrderingKey: row.AggregateID,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID,
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	})
	if result == nil {
		return registry.Permanent(fmt.Errorf("publisher for %s returned no result", topic))
	}
	_, err := result.Get(ctx)
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoff doubles from base up to max after each failed batch.
type backoff struct {
	base, max, cur time.Duration
}

func (b *backoff) next() time.Duration {
	if b.cur <= 0 {
		b.cur = b.base
	}
	b.cur = min(b.cur*2, b.max)
	return withJitter(b.cur)
}

func (b *backoff) reset() { b.cur = 0 }

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return gcpPublisher{p: p}
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return gcpResult{res: g.p.Publish(ctx, msg), p: g.p, key: msg.OrderingKey}
}

// gcpResult resumes the ordering key after a failure; Pub/Sub pauses a key
// until then and would reject the retry.
type gcpResult struct {
	res *gcppubsub.PublishResult
	p   *gcppubsub.Publisher
	key string
}

func (r gcpResult) Get(ctx context.Context) (string, error) {
	id, err := r.res.Get(ctx)
	if err != nil && r.key != "" {
		r.p.ResumePublish(r.key)
	}
	return id, err
}
