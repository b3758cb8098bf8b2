// Package app wires the Amsius bot together: backend selection, corpus
// load, the Matrix channel adapter, and the inbound-message loop.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/amsius/amsius/common/trace"
	"github.com/amsius/amsius/internal/amsius/matrix"
	"github.com/amsius/amsius/internal/amsius/memory"
	"github.com/amsius/amsius/internal/amsius/store"
)

// Config holds application configuration.
type Config struct {
	// Name is the bot's display name, used for mention detection.
	Name string

	// Matrix configures the channel adapter.
	Matrix matrix.Config

	// DatabasePath selects the SQLite row store for retained messages.
	// Empty selects snapshot-file mode unconditionally.
	DatabasePath string

	// SnapshotPath overrides the snapshot file location (snapshot mode).
	SnapshotPath string

	// Memory tuning; zero values select the memory package defaults.
	CorpusCap      int
	MaxLength      int
	CountThreshold int
	HistorySize    int

	// IgnoredUsers are usernames of other automated accounts to ignore.
	IgnoredUsers []string
}

// App is the assembled bot.
type App struct {
	config  *Config
	store   *store.Store // nil in snapshot mode
	matrix  *matrix.Client
	session *memory.Session
}

// New creates the application. The persistence backend is probed exactly
// once here: when a database path is configured and the database opens and
// migrates cleanly, row-store mode is used; any failure degrades to the
// snapshot file for the remainder of the process lifetime.
func New(config *Config) (*App, error) {
	logger := slog.Default()

	var (
		st      *store.Store
		backend memory.Backend
	)
	if config.DatabasePath != "" {
		s, err := store.New(config.DatabasePath)
		if err != nil {
			logger.Warn("database unavailable, falling back to snapshot file for this run",
				"path", config.DatabasePath, "err", err)
		} else {
			st = s
			backend = memory.NewSQLiteBackend(st.DB(), logger)
			logger.Info("memory backend: sqlite", "path", config.DatabasePath)
		}
	}
	if backend == nil {
		sb := memory.NewSnapshotBackend(config.SnapshotPath, logger)
		backend = sb
		logger.Info("memory backend: snapshot file")
	}

	session := memory.NewSession(memory.SessionConfig{
		BotName:        config.Name,
		CorpusCap:      config.CorpusCap,
		MaxLength:      config.MaxLength,
		CountThreshold: config.CountThreshold,
		HistorySize:    config.HistorySize,
		IgnoredUsers:   config.IgnoredUsers,
	}, backend, logger)

	// Populate the corpus before the message stream starts. A failed load
	// means an empty corpus, not a dead bot.
	if err := session.LoadCorpus(context.Background()); err != nil {
		logger.Warn("memory: initial corpus load failed, starting empty", "err", err)
	}

	// Give the Matrix client the DB (when available) so the sync token
	// survives restarts.
	matrixCfg := config.Matrix
	if st != nil {
		matrixCfg.DB = st.DB()
	}
	slog.Info("connecting to Matrix", "homeserver", matrixCfg.Homeserver)
	matrixClient, err := matrix.New(&matrixCfg)
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, fmt.Errorf("app: initialize Matrix client: %w", err)
	}

	return &App{
		config:  config,
		store:   st,
		matrix:  matrixClient,
		session: session,
	}, nil
}

// Run starts the Matrix sync loop and blocks until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("starting Matrix sync")
	if err := a.matrix.Start(ctx, a.handleMessage); err != nil {
		return fmt.Errorf("app: start Matrix client: %w", err)
	}

	slog.Info("Amsius is running; press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	return nil
}

// Stop stops the Matrix client, drains pending persistence writes, and
// closes the database.
func (a *App) Stop() {
	slog.Info("stopping Matrix client")
	a.matrix.Stop()

	if err := a.session.Close(); err != nil {
		slog.Warn("closing memory session", "err", err)
	}
	if a.store != nil {
		slog.Info("closing database")
		a.store.Close()
	}
}

// handleMessage bridges one inbound room message into the learning core
// and delivers any replay it produces. Messages arrive one at a time from
// the sync loop, so the session state needs no locking.
func (a *App) handleMessage(ctx context.Context, msg matrix.Message) {
	ctx = trace.WithTraceID(ctx, trace.GenerateID())

	reply, ok := a.session.HandleMessage(ctx, memory.Inbound{
		Room:   msg.Room,
		Sender: msg.Sender,
		Text:   msg.Text,
		Echo:   msg.Echo,
	})
	if !ok {
		return
	}

	// Best-effort delivery: a lost replay degrades nothing but this one
	// trigger event.
	if err := a.matrix.SendMessage(ctx, msg.Room, reply); err != nil {
		slog.Warn("replay delivery failed",
			"trace_id", trace.FromContext(ctx), "room", msg.Room, "err", err)
	}
}
