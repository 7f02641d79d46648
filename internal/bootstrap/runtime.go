// Package bootstrap wires the dependencies every checkout binary shares:
// environment, configuration, structured logging, the database and, when a
// binary asks for it, Redis.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/checkout-reconciler/pkg/config"
	"github.com/angelmondragon/checkout-reconciler/pkg/db"
	"github.com/angelmondragon/checkout-reconciler/pkg/instance"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
	"github.com/angelmondragon/checkout-reconciler/pkg/migrate"
	"github.com/angelmondragon/checkout-reconciler/pkg/redis"
)

// Options selects what Start brings up besides config and logging.
type Options struct {
	Service   string
	WithRedis bool
}

// Runtime owns the shared clients of one process.
type Runtime struct {
	Service string
	Config  *config.Config
	Logger  *logger.Logger
	DB      *db.Client
	Redis   *redis.Client

	closers []func() error
}

// Start loads .env (optional), config, then opens the database, applies dev
// migrations and opens Redis when requested. On error everything opened so
// far is closed again.
func Start(ctx context.Context, opts Options) (rt *Runtime, err error) {
	rt = &Runtime{
		Service: opts.Service,
		Logger:  logger.New(logger.Options{ServiceName: opts.Service}),
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, rt.Close())
			rt = nil
		}
	}()

	if loadErr := godotenv.Load(); loadErr != nil {
		rt.Logger.Debug(ctx, "no .env file, using process environment")
	}

	rt.Config, err = config.Load()
	if err != nil {
		return rt, fmt.Errorf("load config: %w", err)
	}
	rt.Logger = logger.New(logger.Options{
		ServiceName: opts.Service,
		Level:       logger.ParseLevel(rt.Config.App.LogLevel),
		WarnStack:   rt.Config.App.LogWarnStack,
		Format:      rt.Config.App.LogFormat,
	})

	rt.DB, err = db.New(ctx, rt.Config.DB, rt.Logger)
	if err != nil {
		return rt, fmt.Errorf("open database: %w", err)
	}
	rt.closers = append(rt.closers, rt.DB.Close)

	if err = migrate.MaybeRunDev(ctx, rt.Config, rt.Logger, rt.DB); err != nil {
		return rt, fmt.Errorf("dev migrations: %w", err)
	}

	if opts.WithRedis {
		rt.Redis, err = redis.New(ctx, rt.Config.Redis, rt.Logger)
		if err != nil {
			return rt, fmt.Errorf("open redis: %w", err)
		}
		rt.closers = append(rt.closers, rt.Redis.Close)
	}
	return rt, nil
}

// OnClose registers fn to run when the runtime closes, before the clients
// Start opened.
func (r *Runtime) OnClose(fn func() error) {
	r.closers = append(r.closers, fn)
}

// Close runs the registered closers in reverse order.
func (r *Runtime) Close() error {
	var errs error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, r.closers[i]())
	}
	r.closers = nil
	return errs
}

// SignalContext is cancelled on SIGINT or SIGTERM and carries the process
// log fields.
func (r *Runtime) SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = r.Logger.WithFields(ctx, map[string]any{
		"env":         r.Config.App.Env,
		"instance":    instance.GetID(),
		"serviceKind": r.Service,
	})
	return ctx, stop
}

// Exit logs err and terminates the process with a failure status.
func Exit(logg *logger.Logger, msg string, err error) {
	if logg == nil {
		logg = logger.New(logger.Options{})
	}
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
