package client

import (
	"context"
	"time"

	"github.com/seo-optimizer/insights/analyzer"
)

// TimedOutNote is set on the last known result when polling gives up.
const TimedOutNote = "Detailed analysis timed out"

// State is the state of a polling task.
type State string

const (
	StatePending  State = "pending"
	StateComplete State = "complete"
	StateFailed   State = "failed"
	StateTimedOut State = "timed_out"
)

// Outcome is how a polling task ended.
type Outcome struct {
	State State
	// Result is the complete report, or the last known (possibly nil)
	// result with TimedOutNote when the poll timed out.
	Result *analyzer.AnalysisResult
	// Status is the last status seen from the server.
	Status analyzer.Status
}

// StatusChecker reports the server-side state of an analysis.
type StatusChecker interface {
	Status(ctx context.Context, website string) (analyzer.StatusReport, error)
}

// Poller polls the status endpoint until the analysis completes, fails or
// the safety timeout passes.
type Poller struct {
	checker  StatusChecker
	interval time.Duration
	timeout  time.Duration
}

// NewPoller returns a Poller with the given interval and safety timeout.
// Zero values select 5 seconds and 2 minutes.
func NewPoller(checker StatusChecker, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Poller{checker: checker, interval: interval, timeout: timeout}
}

// Wait polls until a terminal state. last is the best result known so far;
// it is returned, copied and annotated, on timeout. Cancelling ctx stops
// polling and returns ctx.Err().
func (p *Poller) Wait(ctx context.Context, website string, last *analyzer.AnalysisResult) (Outcome, error) {
	deadline := time.NewTimer(p.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Outcome{State: StatePending}, ctx.Err()
		case <-deadline.C:
			return timedOut(last), nil
		case <-ticker.C:
		}

		report, err := p.checker.Status(ctx, website)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{State: StatePending}, ctx.Err()
			}
			return Outcome{State: StateFailed, Status: analyzer.StatusError}, err
		}

		switch report.Status {
		case analyzer.StatusComplete:
			return Outcome{State: StateComplete, Result: report.Result, Status: report.Status}, nil
		case analyzer.StatusPending:
			// keep waiting
		default:
			return Outcome{State: StateFailed, Status: report.Status}, nil
		}
	}
}

func timedOut(last *analyzer.AnalysisResult) Outcome {
	out := Outcome{State: StateTimedOut, Status: analyzer.StatusPending}
	if last != nil {
		annotated := *last
		annotated.Note = TimedOutNote
		out.Result = &annotated
	}
	return out
}
