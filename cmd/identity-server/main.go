package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	identity "github.com/goliatone/go-identity"
	"github.com/goliatone/go-identity/activitymap"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("identity server stopped")
	}
}

func run() error {
	cfg, err := loadServerConfig()
	if err != nil {
		return err
	}

	setupLogger(cfg.LogLevel)

	opts, err := identity.LoadOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := identity.NewRepositoryManager(db, identity.WithHashidIDs(opts.GetUseHashid()))
	repo.MustValidate()

	if err := repo.Migrate(ctx); err != nil {
		return err
	}

	logger := identity.NewZerologLogger(log.Logger)
	tokens := identity.NewTokenService(opts, identity.WithTokenLogger(logger))

	lifecycle := identity.NewLifecycle(opts, repo.Principals(), newMailer(cfg),
		identity.WithLogger(logger),
		identity.WithTokenIssuer(tokens),
		identity.WithActivitySink(activitymap.Sink(func(ctx context.Context, r activitymap.Normalized) error {
			log.Info().
				Str("verb", r.Verb).
				Str("actor_id", r.ActorID).
				Str("channel", r.Channel).
				Fields(r.Metadata).
				Time("occurred_at", r.OccurredAt).
				Msg("identity activity")
			return nil
		})),
	)

	transport := identity.NewCookieTransport(opts, nil)
	gate := identity.NewAuthenticationGate(tokens, repo.Principals(), transport, logger)

	app := fiber.New(fiber.Config{
		AppName:               "identity-server",
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("database unavailable")
		}
		return c.SendString("ok")
	})

	identity.RegisterAuthRoutes(app.Group("/api/v1/users"),
		identity.WithControllerLifecycle(lifecycle),
		identity.WithControllerGate(gate),
		identity.WithControllerTransport(transport),
		identity.WithControllerLogger(logger),
		identity.WithControllerDebug(cfg.Debug),
	)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("driver", cfg.DatabaseDriver).Msg("identity server listening")
		errCh <- app.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

func setupLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func openDB(driver, dsn string) (*bun.DB, error) {
	switch driver {
	case "sqlite3":
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case "postgres":
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		sqldb.SetMaxOpenConns(25)
		sqldb.SetMaxIdleConns(5)
		sqldb.SetConnMaxLifetime(5 * time.Minute)
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, errors.New("unsupported database driver: " + driver)
	}
}

func newMailer(cfg *serverConfig) identity.Mailer {
	if cfg.SMTPHost == "" {
		log.Warn().Msg("SMTP_HOST is empty: reset emails are written to the log")
		return identity.NewLogMailer(log.Logger)
	}

	return identity.NewSMTPMailer(identity.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
}
