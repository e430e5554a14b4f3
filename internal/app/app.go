// Package app wires configuration, the document store and the domain services shared by the
// server, the worker and the admin CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/PittChallenge/pittchallenge.com/config"
	"github.com/PittChallenge/pittchallenge.com/internal/checkins"
	"github.com/PittChallenge/pittchallenge.com/internal/confirmations"
	"github.com/PittChallenge/pittchallenge.com/internal/emaillogs"
	"github.com/PittChallenge/pittchallenge.com/internal/exports"
	"github.com/PittChallenge/pittchallenge.com/internal/icons"
	"github.com/PittChallenge/pittchallenge.com/internal/notifier"
	"github.com/PittChallenge/pittchallenge.com/internal/realtime"
	"github.com/PittChallenge/pittchallenge.com/internal/registrations"
	"github.com/PittChallenge/pittchallenge.com/pkg/database"
	"github.com/PittChallenge/pittchallenge.com/pkg/docstore"
	"github.com/PittChallenge/pittchallenge.com/pkg/queue"
	"github.com/PittChallenge/pittchallenge.com/pkg/redis"
)

// NewLogger returns the production JSON logger used by every binary.
func NewLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}

// OpenStore opens the document store selected by cfg.Driver. Postgres migrations run first.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (docstore.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory document store; data is lost on exit")
		return docstore.NewMemory(), nil
	case config.DriverPostgres:
		if err := database.Migrate(cfg.DatabaseURL, logger); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, int32(cfg.MaxConns), logger)
		if err != nil {
			return nil, err
		}
		return docstore.NewPostgres(pool), nil
	case config.DriverFirestore:
		fs, err := docstore.NewFirestore(ctx, docstore.FirestoreConfig{
			ProjectID:       cfg.ProjectID,
			CredentialsFile: cfg.CredentialsFile,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("Firestore document store ready", zap.String("project", cfg.ProjectID))
		return fs, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// App holds the wired services.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Store  docstore.Store
	Redis  *redis.Client // nil when REDIS_ADDR is empty
	Queue  *queue.Queue  // nil when Redis is disabled

	Registrations *registrations.Service
	CheckIns      *checkins.Service
	Icons         *icons.Repository
	Exporter      *exports.Exporter
	EmailLogs     *emaillogs.Repository
	Confirmations *confirmations.Service
	Live          *realtime.Hub
}

// New opens the store and Redis and builds every service.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	n, err := notifier.New(notifier.Config{
		APIURL:      cfg.Email.APIURL,
		APIKey:      cfg.Email.APIKey,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		Locale:      cfg.Email.Locale,
	}, logger)
	if err != nil {
		_ = store.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, fmt.Errorf("notifier: %w", err)
	}
	return Assemble(cfg, store, rdb, n, logger), nil
}

// Assemble builds the services over an already opened store. rdb may be nil.
func Assemble(cfg *config.Config, store docstore.Store, rdb *redis.Client, n notifier.Notifier, logger *zap.Logger) *App {
	a := &App{Config: cfg, Logger: logger, Store: store, Redis: rdb}
	var bus realtime.Bus
	if rdb != nil {
		a.Queue = queue.NewQueue(rdb.Raw(), logger)
		bus = realtime.NewRedisBus(rdb.Raw(), logger)
	}
	a.Live = realtime.NewHub(bus, logger)

	regRepo := registrations.NewRepository(store)
	checkRepo := checkins.NewRepository(store)
	a.Icons = icons.NewRepository(store, rdb.Raw(), time.Duration(cfg.CheckIn.IconCacheTTLSeconds)*time.Second, logger)
	a.Registrations = registrations.NewService(regRepo, cfg.CheckIn.InstitutionSuffix, logger)
	a.CheckIns = checkins.NewService(checkRepo, regRepo, a.Icons, checkins.Options{
		InstitutionSuffix:     cfg.CheckIn.InstitutionSuffix,
		AliasTag:              cfg.CheckIn.AliasTag,
		StrictEventValidation: cfg.CheckIn.StrictEventValidation,
	}, logger)
	a.CheckIns.SetPublisher(a.Live)
	a.Exporter = exports.NewExporter(store, delimiter(cfg.Export.Delimiter))
	a.EmailLogs = emaillogs.NewRepository(store)

	var enq confirmations.Enqueuer
	if a.Queue != nil {
		enq = a.Queue
	}
	a.Confirmations = confirmations.NewService(checkRepo, n, enq, a.EmailLogs, cfg.CheckIn.TriggerEvent, cfg.Email.Concurrency, logger)
	return a
}

// Close releases the store and Redis connections.
func (a *App) Close() {
	a.Live.Stop()
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.Warn("close store", zap.Error(err))
	}
}

func delimiter(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
