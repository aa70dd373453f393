package eventstore

import (
	"context"
	"sort"
	"time"

	"git.home.luguber.info/inful/watertracker/internal/counter"
)

// DaySummary is the read model of one calendar day.
type DaySummary struct {
	Day        string `json:"day"`
	Taps       int    `json:"taps"`
	Wraps      int    `json:"wraps"`
	Resets     int    `json:"resets"`
	FinalCount int    `json:"final_count"`
}

// Summarize folds events into one summary per day, newest day first.
// Events are expected oldest first, as Range returns them.
func Summarize(events []Event) []DaySummary {
	byDay := make(map[string]*DaySummary)
	for _, e := range events {
		s, ok := byDay[e.Day]
		if !ok {
			s = &DaySummary{Day: e.Day}
			byDay[e.Day] = s
		}
		switch e.Kind {
		case KindTap:
			s.Taps++
			if e.Outcome == string(counter.OutcomeWrap) {
				s.Wraps++
			}
		case KindReset:
			s.Resets++
		}
		s.FinalCount = e.Count
	}

	out := make([]DaySummary, 0, len(byDay))
	for _, s := range byDay {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day > out[j].Day })
	return out
}

// Summaries loads events since since and summarizes them.
func Summaries(ctx context.Context, store Store, since, until time.Time) ([]DaySummary, error) {
	events, err := store.Range(ctx, since, until)
	if err != nil {
		return nil, err
	}
	return Summarize(events), nil
}
