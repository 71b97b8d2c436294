package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/focuslog/focuslog/internal/config"
	"github.com/focuslog/focuslog/internal/database"
	"github.com/focuslog/focuslog/internal/reporter"
	"github.com/focuslog/focuslog/internal/tracker"
	"github.com/focuslog/focuslog/internal/usage"
	"github.com/focuslog/focuslog/pkg/detector"
	"github.com/focuslog/focuslog/pkg/window"
)

// app wires the tracker to its probe, store and optional history database.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  *usage.FileStore
	db     *database.DB
	probe  window.Probe
	engine *tracker.Engine
}

func newApp(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  usage.NewFileStore(cfg.Storage.Path, logger),
	}

	var opts []tracker.Option
	if cfg.Database.Enabled {
		db, err := database.Connect(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Initialize(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.db = db

		rec := database.NewRecorder(database.NewRepository(db))
		opts = append(opts, tracker.WithSessionRecorder(rec), tracker.WithErrorRecorder(rec))
		logger.Info().Str("path", cfg.Database.Path).Msg("Session history enabled")
	}

	probe, err := detector.New()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize window probe: %w", err)
	}
	a.probe = probe
	logger.Info().Str("probe", probe.Name()).Msg("Window probe initialized")

	a.prune()

	a.engine = tracker.NewEngine(a.store, probe, tracker.Config{
		PollInterval:       cfg.Tracker.PollInterval,
		FlushInterval:      cfg.Tracker.FlushInterval,
		ProbeTimeout:       cfg.Tracker.ProbeTimeout,
		RolloverAtMidnight: cfg.Tracker.RolloverAtMidnight,
	}, logger, opts...)

	return a, nil
}

// prune drops days outside the retention window.
func (a *app) prune() {
	days := a.cfg.Storage.RetentionDays
	if days <= 0 {
		return
	}
	cutoff := usage.DateKey(time.Now().AddDate(0, 0, -days))

	n, err := a.store.Prune(cutoff)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to prune usage document")
	} else if n > 0 {
		a.logger.Info().Int("days", n).Str("before", cutoff).Msg("Pruned old usage")
	}

	if a.db != nil {
		if _, err := database.NewRepository(a.db).DeleteSessionsBefore(cutoff); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to prune session history")
		}
	}
}

func (a *app) reporter() *reporter.Reporter {
	return reporter.New(a.store, reporter.WithLive(func() (string, usage.Counter) {
		return a.engine.Today(), a.engine.Live()
	}))
}

func (a *app) Close() {
	if a.probe != nil {
		if err := a.probe.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close window probe")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
}
