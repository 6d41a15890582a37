package cmd

import (
	"context"
	"fmt"

	"github.com/Sayan2713/QR-Generator-Verify-System/config"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/audit"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/mirror"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/repository"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/service"
	"github.com/Sayan2713/QR-Generator-Verify-System/pkg/database"
	"github.com/Sayan2713/QR-Generator-Verify-System/pkg/rabbitmq"
	"github.com/Sayan2713/QR-Generator-Verify-System/pkg/redislock"
	"github.com/Sayan2713/QR-Generator-Verify-System/pkg/sheets"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// app holds the wiring shared by every sub-command.
type app struct {
	cfg config.Config
	db  *gorm.DB

	attendees repository.AttendeeRepository
	table     *audit.Log
	syncer    *mirror.Syncer

	events   service.EventService
	register service.AttendeeService
	verify   service.VerifyService

	publisher *rabbitmq.Publisher
	redis     *redis.Client
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{cfg: cfg}

	db, err := database.NewPostgresDB(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	a.db = db

	var pub service.Publisher
	if cfg.RabbitURL != "" {
		p, err := rabbitmq.NewPublisher(cfg.RabbitURL)
		if err != nil {
			a.close()
			return nil, errors.Wrap(err, "failed to connect to RabbitMQ")
		}
		a.publisher = p
		pub = p
	} else {
		log.Info().Msg("RABBIT_URL not set, domain events are not published")
	}

	var locker audit.Locker = audit.NewLocalLocker()
	if cfg.Redis.Addr != "" {
		client, err := redislock.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.close()
			return nil, err
		}
		a.redis = client
		locker = redislock.New(client, 2*cfg.Mirror.Timeout)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis mirror locks")
	}

	grid, err := newGrid(ctx, cfg, a.db)
	if err != nil {
		a.close()
		return nil, err
	}

	a.attendees = repository.NewAttendeeRepository(a.db)
	eventRepo := repository.NewEventRepository(a.db)
	a.table = audit.NewLog(grid, locker)
	a.syncer = mirror.NewSyncer(a.attendees, a.table, locker, cfg.Mirror.Timeout)

	a.events = service.NewEventService(eventRepo, a.table, pub)
	a.register = service.NewAttendeeService(a.attendees, eventRepo, a.syncer, pub)
	a.verify = service.NewVerifyService(a.attendees, eventRepo, a.syncer, pub)
	return a, nil
}

func newGrid(ctx context.Context, cfg config.Config, db *gorm.DB) (audit.Grid, error) {
	switch cfg.Mirror.Backend {
	case "postgres", "":
		g := audit.NewGormGrid(db)
		if err := g.AutoMigrate(); err != nil {
			return nil, errors.Wrap(err, "failed to migrate audit tables")
		}
		return g, nil
	case "sheets":
		if cfg.Google.SheetID == "" {
			return nil, errors.New("GOOGLE_SHEET_ID is required for the sheets mirror backend")
		}
		creds, err := sheets.LoadCredentials(cfg.Google.ServiceAccountJSON, cfg.Google.KeyFile)
		if err != nil {
			return nil, err
		}
		return sheets.NewGrid(ctx, cfg.Google.SheetID, creds)
	case "memory":
		log.Warn().Msg("memory mirror backend: audit tables are lost on exit")
		return audit.NewMemoryGrid(), nil
	default:
		return nil, fmt.Errorf("unknown MIRROR_BACKEND %q", cfg.Mirror.Backend)
	}
}

func (a *app) reconciler() *mirror.Reconciler {
	return mirror.NewReconciler(a.attendees, a.syncer, a.cfg.Reconcile.MaxAttempts, a.cfg.Reconcile.BatchSize)
}

func (a *app) close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("closing redis")
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
