// Package commands implements the watertracker CLI subcommands.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/watertracker/internal/config"
	"git.home.luguber.info/inful/watertracker/internal/eventstore"
	"git.home.luguber.info/inful/watertracker/internal/logfields"
	"git.home.luguber.info/inful/watertracker/internal/storage"
	"git.home.luguber.info/inful/watertracker/internal/tracker"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
	// Out receives command output. Defaults to stdout.
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"watertracker.yaml" env:"WATERTRACKER_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Daemon  DaemonCmd  `cmd:"" help:"Run the HTTP API, reset scheduler and config watcher"`
	Tap     TapCmd     `cmd:"" help:"Record one glass of water against the configured store"`
	Status  StatusCmd  `cmd:"" help:"Print today's count, fill level and date"`
	Reset   ResetCmd   `cmd:"" help:"Zero the counter for today"`
	History HistoryCmd `cmd:"" help:"Print recent counter history"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads root.Config and installs the configured logger.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logging.NewLogger(os.Stderr, root.Verbose)
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
	return cfg, nil
}

// session is a tracker over the configured store for one-shot commands.
type session struct {
	tracker *tracker.Service
	history *eventstore.SQLiteStore
	store   storage.Store
}

func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	st, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	s := &session{store: st}
	opts := []tracker.Option{
		tracker.WithLocation(loc),
		tracker.WithGoal(cfg.DailyGoal()),
	}
	if cfg.History.Enabled {
		h, err := eventstore.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		s.history = h
		opts = append(opts, tracker.WithHistory(h))
	}
	s.tracker = tracker.New(st, opts...)
	return s, nil
}

func (s *session) Close() {
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			slog.Warn("Failed to close history", logfields.Error(err))
		}
	}
	if err := s.store.Close(); err != nil {
		slog.Warn("Failed to close store", logfields.Error(err))
	}
}

// printView writes a view either as JSON or as "count/goal (level)".
func printView(w io.Writer, asJSON bool, v any, text string) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

// percent renders a fill level as a percentage.
func percent(level int) string {
	return fmt.Sprintf("%d.%02d%%", level/100, level%100)
}
