// Package rollup folds the check runs and commit statuses of a commit into a
// single tri-state verdict.
package rollup

import "strings"

// Overall states, in decreasing precedence.
const (
	StateFailure = "FAILURE"
	StatePending = "PENDING"
	StateSuccess = "SUCCESS"
)

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomePending
	outcomeFailure
)

// CheckResult is either a CheckRun or a StatusContext.
type CheckResult interface {
	// label is the name reported in failing contexts.
	label() string
	classify() outcome
}

// CheckRun is a GitHub Actions (or app) check run. A run that has not
// concluded yet has an empty Conclusion and counts as a failure.
type CheckRun struct {
	Name       string
	Conclusion string
}

// StatusContext is a legacy commit status.
type StatusContext struct {
	Context string
	State   string
}

func (c CheckRun) label() string { return c.Name }

func (c CheckRun) classify() outcome {
	switch strings.ToUpper(strings.TrimSpace(c.Conclusion)) {
	case "SUCCESS", "NEUTRAL", "SKIPPED":
		return outcomeSuccess
	case "PENDING", "QUEUED", "IN_PROGRESS":
		return outcomePending
	default:
		return outcomeFailure
	}
}

func (s StatusContext) label() string { return s.Context }

func (s StatusContext) classify() outcome {
	switch strings.ToUpper(strings.TrimSpace(s.State)) {
	case "SUCCESS":
		return outcomeSuccess
	case "PENDING":
		return outcomePending
	default:
		return outcomeFailure
	}
}

// Counts tallies classified contexts.
type Counts struct {
	Success int `json:"success"`
	Pending int `json:"pending"`
	Failure int `json:"failure"`
}

// Rollup is the aggregated CI verdict for one commit.
type Rollup struct {
	OverallState    string   `json:"overall_state"`
	Counts          Counts   `json:"counts"`
	FailingContexts []string `json:"failing_contexts,omitempty"`
}

// Aggregate classifies results in order. Unknown conclusions and states count
// as failures. A non-empty authoritative state is used as the overall state
// (upper-cased); otherwise it is derived from the counts.
func Aggregate(results []CheckResult, authoritative string, includeFailing bool) Rollup {
	var r Rollup
	for _, res := range results {
		if res == nil {
			continue
		}
		switch res.classify() {
		case outcomeSuccess:
			r.Counts.Success++
		case outcomePending:
			r.Counts.Pending++
		case outcomeFailure:
			r.Counts.Failure++
			if includeFailing {
				r.FailingContexts = append(r.FailingContexts, res.label())
			}
		}
	}

	if state := strings.TrimSpace(authoritative); state != "" {
		r.OverallState = strings.ToUpper(state)
		return r
	}
	r.OverallState = r.Counts.derive()
	return r
}

func (c Counts) derive() string {
	switch {
	case c.Failure > 0:
		return StateFailure
	case c.Pending > 0:
		return StatePending
	default:
		return StateSuccess
	}
}
