// Package app assembles the companion's stores, remote client and services from
// configuration. The HTTP server and the CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/skp-companion/internal/config"
	"github.com/noah-isme/skp-companion/internal/database"
	"github.com/noah-isme/skp-companion/internal/events"
	"github.com/noah-isme/skp-companion/internal/export"
	"github.com/noah-isme/skp-companion/internal/remote"
	"github.com/noah-isme/skp-companion/internal/repository"
	"github.com/noah-isme/skp-companion/internal/service"
	"github.com/noah-isme/skp-companion/internal/storage"
	cloud "github.com/noah-isme/skp-companion/pkg/cloudinary"
)

// Container holds the wired dependencies of one process.
type Container struct {
	Config   config.Config
	Logger   zerolog.Logger
	Validate *validator.Validate

	Store    storage.Store
	Pending  repository.PendingRepository
	Sessions repository.SessionRepository
	Broker   *events.Broker

	Submissions service.SubmissionService
	Queue       service.PendingService
	Session     service.SessionService
	Catalog     service.CatalogService

	closers []func() error
}

// NewLogger builds the process logger at the configured level.
func NewLogger(cfg config.Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("app", cfg.AppName).Logger()
}

// Build wires every dependency described by cfg. Close releases them.
func Build(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Container, error) {
	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	store, err := c.openStore(ctx)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Store = store
	c.Pending = repository.NewPendingRepository(store)
	c.Sessions = repository.NewSessionRepository(store)

	client, err := remote.NewClient(remote.Config{
		BaseURL: cfg.RemoteBaseURL,
		Timeout: cfg.RemoteTimeout,
		Logger:  logger,
	})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to create remote client: %w", err)
	}

	renderer, err := export.NewRenderer(cfg.ExportRecipient)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to prepare export renderer: %w", err)
	}

	c.Broker = events.NewBroker()
	publisher := events.Multi{c.Broker}
	if cfg.NATSURL != "" {
		conn, err := events.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			// the queue works without NATS; only remote observers lose the feed.
			logger.Warn().Err(err).Msg("nats unavailable, queue events stay local")
		} else {
			c.closers = append(c.closers, closeNATS(conn))
			publisher = append(publisher, events.NewNATSPublisher(conn, cfg.NATSSubject, logger))
		}
	}

	var fileStorage service.FileStorage
	if cfg.CloudinaryEnabled() {
		evidenceStore, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
		}
		fileStorage = evidenceStore
	}

	route := remote.ClaimRoute{Primary: cfg.ClaimEndpoint, Fallbacks: cfg.ClaimFallbackEndpoints}
	identities := service.NewIdentityResolver(client, cfg.ProfileEndpoints, c.Sessions, logger)

	c.Submissions = service.NewSubmissionService(client, c.Pending, c.Sessions, identities, fileStorage, publisher, c.Validate, service.SubmissionConfig{
		Route:           route,
		UploadEndpoints: cfg.UploadEndpoints,
		EvidenceMaxMB:   cfg.EvidenceMaxMB,
	}, logger)
	c.Queue = service.NewPendingService(client, c.Pending, c.Sessions, renderer, publisher, service.PendingConfig{
		Route:      route,
		MaxReplays: cfg.MaxReplays,
	}, logger)
	c.Session = service.NewSessionService(client, c.Sessions, identities, cfg.ProfileEndpoints, c.Validate, logger)
	c.Catalog = service.NewCatalogService(remote.NewCatalog(client, cfg.AdminPrefix), c.Sessions, c.Validate, logger)

	logger.Debug().Str("store", cfg.StoreDriver).Str("remote", cfg.RemoteBaseURL).Bool("cloudinary", fileStorage != nil).Msg("container ready")
	return c, nil
}

func (c *Container) openStore(ctx context.Context) (storage.Store, error) {
	cfg := c.Config
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		return storage.NewMemoryStore(), nil
	case config.StoreDriverRedis:
		client, err := database.ConnectRedis(ctx, cfg.RedisURL, 5*time.Second)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, client.Close)
		return storage.NewRedisStore(client, cfg.StoreNamespace), nil
	case config.StoreDriverPostgres:
		db, err := database.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return c.sqlStore(db)
	default:
		db, err := database.ConnectSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return c.sqlStore(db)
	}
}

func (c *Container) sqlStore(db *gorm.DB) (storage.Store, error) {
	if sqlDB, err := db.DB(); err == nil {
		c.closers = append(c.closers, sqlDB.Close)
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return storage.NewGormStore(db, c.Config.StoreNamespace), nil
}

// Close releases connections in reverse order of acquisition.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}

func closeNATS(conn *nats.Conn) func() error {
	return func() error {
		return conn.Drain()
	}
}
