package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sessionshq/license-service/internal/api"
	"github.com/sessionshq/license-service/internal/config"
	"github.com/sessionshq/license-service/internal/idempotency"
	"github.com/sessionshq/license-service/internal/notify"
	"github.com/sessionshq/license-service/internal/pipeline"
	"github.com/sessionshq/license-service/internal/store"
	"github.com/sessionshq/license-service/internal/verify"
	"github.com/sessionshq/license-service/internal/ws"
)

// App is the wired pipeline plus its HTTP surface. Both deployment
// adapters build one of these so the issuance logic exists in exactly
// one place.
type App struct {
	Pipeline *pipeline.Pipeline
	Router   http.Handler
	Hub      *ws.Hub

	pgStore     *store.PostgresStore
	redisCloser interface{ Close() error }
}

// Options tune what Build wires beyond the pipeline itself.
type Options struct {
	// MigrationsDir is walked for *.up.sql files when Postgres is
	// configured. Empty skips migrations.
	MigrationsDir string

	// LiveFeed enables the operator websocket hub. The single-invocation
	// adapter leaves it off — there is no process to run it in.
	LiveFeed bool
}

// Build wires stores, guard, dispatcher and pipeline from configuration.
// Postgres and Redis are optional: without them the in-process store and
// guard are used, which keeps the service deployable with no
// infrastructure at all.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	a := &App{}

	var licStore store.LicenseStore
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting license store: %w", err)
		}
		if opts.MigrationsDir != "" {
			if err := pg.RunMigrations(ctx, opts.MigrationsDir); err != nil {
				pg.Close()
				return nil, fmt.Errorf("running migrations: %w", err)
			}
		}
		a.pgStore = pg
		licStore = pg
		logger.Info("connected to PostgreSQL")
	} else {
		licStore = store.NewMemoryStore()
		logger.Warn("DATABASE_URL not set, using in-memory license store")
	}

	var guard idempotency.Guard
	if cfg.RedisURL != "" {
		client, err := store.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting idempotency guard: %w", err)
		}
		a.redisCloser = client
		guard = idempotency.NewRedisGuard(client)
		logger.Info("connected to Redis")
	} else {
		guard = idempotency.NewMemoryGuard()
		logger.Warn("REDIS_URL not set, using in-process idempotency guard")
	}

	if opts.LiveFeed {
		a.Hub = ws.NewHub(logger)
		go a.Hub.Run()
	}

	var mailer notify.Mailer
	if cfg.SendGridAPIKey != "" {
		mailer = notify.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailTimeout)
	} else {
		logger.Warn("SENDGRID_API_KEY not set, license keys will be logged for manual delivery")
	}

	dispatcher := notify.NewDispatcher(mailer, licStore, a.Hub, logger, cfg.FromEmail, cfg.MailTimeout)
	verifier := verify.NewVerifier(cfg.WebhookSecret, cfg.SignatureTolerance)

	a.Pipeline = pipeline.New(verifier, guard, licStore, dispatcher, a.Hub, logger, cfg.LicenseCredits)
	a.Router = api.NewRouter(a.Pipeline, licStore, a.Hub)

	return a, nil
}

// Close releases external connections.
func (a *App) Close() {
	if a.pgStore != nil {
		a.pgStore.Close()
	}
	if a.redisCloser != nil {
		a.redisCloser.Close()
	}
}
