package main

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"vepbot/internal/attachments"
	"vepbot/internal/channel"
	"vepbot/internal/config"
	"vepbot/internal/contacts"
	"vepbot/internal/db"
	"vepbot/internal/delivery"
	"vepbot/internal/jobs"
	"vepbot/internal/logger"
	"vepbot/internal/message"
	"vepbot/internal/storage"
	"vepbot/internal/templates"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "vepbot",
		Short:        "Delivers scheduled VEP payment slips over WhatsApp",
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(migrateCmd())
	return root
}

// app holds what every subcommand needs.
type app struct {
	cfg config.Config
	log *zap.SugaredLogger
	db  *gorm.DB
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogJSON, cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: gdb}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newWorker wires the delivery pipeline: S3 attachments, template cache,
// renderer, and the protected gateway over the WhatsApp bridge.
func (a *app) newWorker(ctx context.Context) (*jobs.Worker, error) {
	cfg := a.cfg
	loc := cfg.Scheduler.Location()

	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:   cfg.Storage.Bucket,
		Region:   cfg.Storage.Region,
		Endpoint: cfg.Storage.Endpoint,
		Prefix:   cfg.Storage.Prefix,
	})
	if err != nil {
		return nil, err
	}

	opts := delivery.DefaultOptions()
	opts.Attempts = cfg.Delivery.Attempts
	opts.MaxBytes = cfg.Delivery.AttachmentMaxBytes

	gateway := delivery.NewGateway(
		channel.NewBridge(cfg.Bridge.URL, cfg.Bridge.Token, a.log.Named("bridge")),
		delivery.NewBreaker(cfg.Delivery.BreakerThreshold, cfg.Delivery.BreakerCooldown),
		delivery.NewLimiter(cfg.Delivery.RateLimitPerMinute),
		opts,
		a.log.Named("gateway"),
	)

	host, _ := os.Hostname()
	return &jobs.Worker{
		ID:          host,
		Repo:        &jobs.Repo{DB: a.db},
		Templates:   templates.NewResolver(&templates.Repo{DB: a.db}),
		Attachments: attachments.NewResolver(store, a.log.Named("attachments")),
		Renderer:    message.NewRenderer(loc),
		Gateway:     gateway,
		Contacts:    &contacts.Repo{DB: a.db},
		Window: jobs.Window{
			Loc:        loc,
			Bucket:     cfg.Scheduler.Bucket,
			StaleAfter: cfg.Scheduler.StaleAfter,
			Grace:      cfg.Scheduler.GraceWindow,
		},
		Interval: cfg.Scheduler.PollInterval,
		Pause:    cfg.Scheduler.RecipientPause,
		Log:      a.log.Named("scheduler"),
	}, nil
}
