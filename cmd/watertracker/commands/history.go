package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
	"git.home.luguber.info/inful/watertracker/internal/eventstore"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int  `short:"n" help:"Number of events to show" default:"20"`
	Days  int  `help:"Summarize the last N days instead of listing events"`
	JSON  bool `help:"Print the result as JSON"`
}

func (c *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return derrors.ValidationError("history is disabled; set history.enabled in the configuration")
	}
	ctx := context.Background()
	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if c.Days > 0 {
		now := time.Now()
		days, err := eventstore.Summaries(ctx, s.history, now.AddDate(0, 0, -c.Days), now)
		if err != nil {
			return err
		}
		if c.JSON {
			return printView(g.out(), true, days, "")
		}
		tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "DAY\tTAPS\tWRAPS\tRESETS\tFINAL")
		for _, d := range days {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", d.Day, d.Taps, d.Wraps, d.Resets, d.FinalCount)
		}
		return tw.Flush()
	}

	events, err := s.history.Recent(ctx, c.Limit)
	if err != nil {
		return err
	}
	if c.JSON {
		return printView(g.out(), true, events, "")
	}
	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIME\tKIND\tOUTCOME\tCOUNT\tDAY")
	for _, e := range events {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", e.Timestamp.Format(time.RFC3339), e.Kind, e.Outcome, e.Count, e.Day)
	}
	return tw.Flush()
}
