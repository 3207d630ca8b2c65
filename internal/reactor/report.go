package reactor

import "time"

type Outcome string

const (
	OutcomeExecuted        Outcome = "executed"
	OutcomeSkippedDone     Outcome = "skipped_done"
	OutcomeSkippedNotAfter Outcome = "skipped_not_after"
	OutcomeFailed          Outcome = "failed"
)

// ReactionRecord notes whether a reaction's trigger fired.
type ReactionRecord struct {
	Service  string
	Reaction string
	Trigger  string
	Fired    bool
}

// ActionRecord notes what happened to one execute entry of a fired reaction.
type ActionRecord struct {
	Action   string
	Reaction string
	Outcome  Outcome
	ExitCode int
	// Blocking lists the already executed not_after actions behind a skip.
	Blocking []string
	Duration time.Duration
}

// Report is the ordered trace of one reaction pass.
type Report struct {
	Reactions []ReactionRecord
	Actions   []ActionRecord
}

// Executed returns the actions that ran successfully, in execution order.
func (r Report) Executed() []string {
	var out []string
	for _, a := range r.Actions {
		if a.Outcome == OutcomeExecuted {
			out = append(out, a.Action)
		}
	}
	return out
}

// Count returns how many action records carry outcome.
func (r Report) Count(outcome Outcome) int {
	n := 0
	for _, a := range r.Actions {
		if a.Outcome == outcome {
			n++
		}
	}
	return n
}

// Fired returns the reactions whose trigger fired, in evaluation order.
func (r Report) Fired() []string {
	var out []string
	for _, rr := range r.Reactions {
		if rr.Fired {
			out = append(out, rr.Reaction)
		}
	}
	return out
}
