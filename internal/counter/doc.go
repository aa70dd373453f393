// Package counter holds the daily water counter state machine.
//
// Everything in this package is pure: event handlers take the current state
// plus the current time and return the next state together with a list of
// side-effect commands (persist, redraw, arm, cancel). Executing those
// commands against a store, the surfaces and a timer is the tracker's job.
package counter
