package counter

import (
	"fmt"
	"time"
)

// DateLayout is the persisted format of LastUpdateDate.
const DateLayout = "2006-01-02"

// MaxLevel is the fill level of a full indicator.
const MaxLevel = 10000

// DefaultGoal is the number of cups in a day unless configured otherwise.
const DefaultGoal Goal = 10

// Goal is the daily cup threshold N. Counts live in [0, N].
type Goal int

// Validate rejects goals that would make Level undefined.
func (g Goal) Validate() error {
	if g < 1 {
		return fmt.Errorf("goal must be at least 1, got %d", g)
	}
	return nil
}

// State is the single persisted record.
type State struct {
	Count          int    `json:"waterCount"`
	LastUpdateDate string `json:"lastUpdateDate"`
}

// Stale reports whether the state belongs to a day other than today.
func (s State) Stale(today string) bool {
	return s.LastUpdateDate != today
}

// View is what a surface draws: the textual count and the fill level.
type View struct {
	Count int `json:"count"`
	Level int `json:"level"`
}

// NewView builds the view for count under goal.
func NewView(count int, goal Goal) View {
	return View{Count: count, Level: Level(count, goal)}
}

// Snapshot is a read-only view of the counter for today.
type Snapshot struct {
	View
	Goal Goal   `json:"goal"`
	Date string `json:"date"`
	// Stale is true when the stored record belongs to an earlier day. The
	// view then reports zero and nothing is written back.
	Stale bool `json:"stale"`
}

// Level returns count * MaxLevel / goal, clamped to [0, MaxLevel]. The
// clamp only matters when the goal was lowered below an existing count.
func Level(count int, goal Goal) int {
	if goal < 1 || count <= 0 {
		return 0
	}
	lvl := count * MaxLevel / int(goal)
	if lvl > MaxLevel {
		return MaxLevel
	}
	return lvl
}

// Today formats t as a calendar date in t's location.
func Today(t time.Time) string {
	return t.Format(DateLayout)
}

// NextMidnight returns the first instant after t whose calendar date, in
// t's location, differs from t's. That is 00:00 of the next day, or the
// first wall-clock time after a DST jump that skips midnight (01:00 in
// America/Santiago on 2024-09-08).
func NextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
	today := Today(t)
	// time.Date may resolve a skipped midnight to 23:00 of the same day.
	for !next.After(t) || Today(next) == today {
		next = next.Add(time.Hour)
	}
	return next
}

// DelayUntilMidnight is the time left until NextMidnight(now).
func DelayUntilMidnight(now time.Time) time.Duration {
	return NextMidnight(now).Sub(now)
}
