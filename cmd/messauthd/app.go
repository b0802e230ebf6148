package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/messline/messauth"
	"github.com/messline/messauth/account"
	"github.com/messline/messauth/httpapi"
	"github.com/messline/messauth/internal/appconfig"
	"github.com/messline/messauth/internal/limiters"
	"github.com/messline/messauth/metrics/export/prometheus"
	"github.com/messline/messauth/notify"
	"github.com/messline/messauth/store/memstore"
	"github.com/messline/messauth/store/pgstore"
	"github.com/messline/messauth/store/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// app owns everything serve builds. close releases it in reverse order.
type app struct {
	engine  *messauth.Engine
	handler http.Handler
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg appconfig.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	var rdb redis.UniversalClient
	if cfg.Store.Driver == appconfig.DriverRedis {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", cfg.Redis.Addr).Wrap(err)
		}
	}

	store, err := buildStore(ctx, cfg, rdb, a)
	if err != nil {
		return nil, err
	}

	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	builder := messauth.New().
		WithConfig(cfg.EngineConfig()).
		WithStore(store).
		WithNotifier(notifier).
		WithLogger(logger)
	if cfg.Auth.Audit {
		builder = builder.WithAuditSink(messauth.NewSlogSink(logger.With("component", "audit")))
	}
	engine, err := builder.Build()
	if err != nil {
		return nil, oops.Code("ENGINE_BUILD_FAILED").Wrap(err)
	}
	a.engine = engine
	a.closers = append(a.closers, engine.Close)

	opts := httpapi.Options{
		Logger:     logger.With("component", "http"),
		TrustProxy: cfg.HTTP.TrustProxy,
	}
	if cfg.RateLimit.Enabled {
		if opts.Sensitive, err = buildRateLimit("sensitive", cfg.RateLimit.SensitiveLimit, cfg.RateLimit.SensitiveWindow, rdb, logger); err != nil {
			return nil, err
		}
		if opts.Login, err = buildRateLimit("login", cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow, rdb, logger); err != nil {
			return nil, err
		}
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = prometheus.Handler(engine)
	}
	a.handler = httpapi.New(engine, opts)
	return a, nil
}

func buildStore(ctx context.Context, cfg appconfig.Config, rdb redis.UniversalClient, a *app) (account.Store, error) {
	switch cfg.Store.Driver {
	case appconfig.DriverRedis:
		return redisstore.New(rdb, cfg.Redis.Prefix), nil
	case appconfig.DriverPostgres:
		if cfg.Postgres.MigrateOnStart {
			if err := migrateUp(cfg.Postgres.DSN); err != nil {
				return nil, err
			}
		}
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "open pool").Wrap(err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := pool.Ping(ctx); err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
		}
		return pgstore.New(pool), nil
	case appconfig.DriverMemory:
		return memstore.New(), nil
	default:
		return nil, oops.Code("CONFIG_INVALID").With("driver", cfg.Store.Driver).Errorf("unknown store driver")
	}
}

func buildNotifier(cfg appconfig.Config, logger *slog.Logger) (notify.Notifier, error) {
	smtp, ok := cfg.SMTPNotifierConfig()
	if !ok {
		logger.Warn("smtp not configured, notifications are logged only")
		return notify.LogNotifier{
			Logger:      logger.With("component", "notify"),
			IncludeCode: cfg.Log.Level == "debug",
		}, nil
	}
	n, err := notify.NewSMTPNotifier(smtp)
	if err != nil {
		return nil, oops.Code("SMTP_CONFIG_INVALID").With("host", smtp.Host).Wrap(err)
	}
	return n, nil
}

// buildRateLimit prefers a Redis fixed window and falls back to an
// in-process bucket while Redis is unreachable.
func buildRateLimit(name string, limit int, window time.Duration, rdb redis.UniversalClient, logger *slog.Logger) (httpapi.RateLimit, error) {
	policy := limiters.Policy{Name: name, Limit: limit, Window: window}
	local, err := limiters.NewLocal(policy)
	if err != nil {
		return httpapi.RateLimit{}, oops.Code("CONFIG_INVALID").With("limiter", name).Wrap(err)
	}
	if rdb == nil {
		return httpapi.RateLimit{Limiter: local, RetryAfter: window}, nil
	}

	fixed, err := limiters.NewFixedWindow(rdb, policy)
	if err != nil {
		return httpapi.RateLimit{}, oops.Code("CONFIG_INVALID").With("limiter", name).Wrap(err)
	}
	return httpapi.RateLimit{
		Limiter: &limiters.Failover{
			Primary:   fixed,
			Secondary: local,
			OnFailover: func(err error) {
				logger.Warn("rate limiter using local fallback", "limiter", name, "error", err)
			},
		},
		RetryAfter: window,
	}, nil
}
