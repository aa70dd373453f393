package counter

import "time"

// ResetJobName names the one-shot reset timer. Arming under the same name
// always replaces a pending timer instead of adding a second one.
const ResetJobName = "daily_reset_work"

// SchedulerState tells whether a reset is pending.
type SchedulerState int

const (
	Idle SchedulerState = iota
	Armed
)

func (s SchedulerState) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// TapOutcome classifies which branch an increment took.
type TapOutcome string

const (
	OutcomeSameDay  TapOutcome = "same_day"
	OutcomeRollover TapOutcome = "rollover"
	OutcomeWrap     TapOutcome = "wrap"
)

// Command is a side effect requested by a transition.
type Command interface {
	command()
}

// Persist writes the state to the store.
type Persist struct{ State State }

// RedrawAll redraws every active surface with View.
type RedrawAll struct{ View View }

// Arm schedules the named one-shot timer after Delay, replacing any pending one.
type Arm struct {
	Name  string
	Delay time.Duration
}

// Cancel drops the named timer.
type Cancel struct{ Name string }

func (Persist) command()   {}
func (RedrawAll) command() {}
func (Arm) command()       {}
func (Cancel) command()    {}

// Increment applies one tap to st on day today.
func Increment(st State, today string, goal Goal) (State, TapOutcome) {
	if st.Stale(today) {
		// The triggering tap is the first cup of the new day.
		return State{Count: 1, LastUpdateDate: today}, OutcomeRollover
	}
	next := st.Count + 1
	if next > int(goal) {
		return State{Count: 0, LastUpdateDate: today}, OutcomeWrap
	}
	return State{Count: next, LastUpdateDate: today}, OutcomeSameDay
}

// OnTap handles the "user tapped increment" event.
func OnTap(st State, now time.Time, goal Goal) (State, TapOutcome, []Command) {
	next, outcome := Increment(st, Today(now), goal)
	return next, outcome, []Command{
		Persist{State: next},
		RedrawAll{View: NewView(next.Count, goal)},
	}
}

// OnActivated handles the first surface being added.
func OnActivated(_ SchedulerState, now time.Time) (SchedulerState, []Command) {
	return Armed, []Command{arm(now)}
}

// OnRemoved handles the last surface being removed.
func OnRemoved(_ SchedulerState) (SchedulerState, []Command) {
	return Idle, []Command{Cancel{Name: ResetJobName}}
}

// OnTimerFired handles the midnight reset. The scheduler re-arms itself for
// the following midnight, so it stays Armed.
func OnTimerFired(now time.Time) (State, SchedulerState, []Command) {
	next := State{Count: 0, LastUpdateDate: Today(now)}
	return next, Armed, []Command{
		Persist{State: next},
		RedrawAll{View: View{}},
		arm(now),
	}
}

// Observe builds the stale-aware snapshot of st for now.
func Observe(st State, now time.Time, goal Goal) Snapshot {
	today := Today(now)
	snap := Snapshot{Goal: goal, Date: today}
	if st.Stale(today) {
		snap.Stale = st.LastUpdateDate != ""
		return snap
	}
	snap.View = NewView(st.Count, goal)
	return snap
}

func arm(now time.Time) Arm {
	return Arm{Name: ResetJobName, Delay: DelayUntilMidnight(now)}
}
