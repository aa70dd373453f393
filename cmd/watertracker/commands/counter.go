package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/watertracker/internal/counter"
)

// TapCmd implements the 'tap' command.
type TapCmd struct {
	JSON bool `help:"Print the result as JSON"`
}

func (c *TapCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	ctx := context.Background()
	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	v, err := s.tracker.Tap(ctx)
	if err != nil {
		return err
	}
	return printView(g.out(), c.JSON, v, fmt.Sprintf("%d/%d (%s)", v.Count, cfg.Goal, percent(v.Level)))
}

// StatusCmd implements the 'status' command.
type StatusCmd struct {
	JSON bool `help:"Print the result as JSON"`
}

func (c *StatusCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	ctx := context.Background()
	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err := s.tracker.Current(ctx)
	if err != nil {
		return err
	}
	return printView(g.out(), c.JSON, snap, statusLine(snap))
}

func statusLine(snap counter.Snapshot) string {
	line := fmt.Sprintf("%s: %d/%d (%s)", snap.Date, snap.Count, snap.Goal, percent(snap.Level))
	if snap.Stale {
		line += " - no water recorded today yet"
	}
	return line
}

// ResetCmd implements the 'reset' command.
type ResetCmd struct{}

func (c *ResetCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	ctx := context.Background()
	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.tracker.Reset(ctx); err != nil {
		return err
	}
	_, err = fmt.Fprintln(g.out(), "Counter reset for today")
	return err
}
