package analyzer

import "context"

// Status is the state of an analysis as seen by a polling client.
type Status string

const (
	StatusComplete Status = "complete"
	StatusPending  Status = "pending"
	StatusNotFound Status = "not_found"
	StatusExpired  Status = "expired"
	StatusError    Status = "error"
)

// StatusReport is the answer to a status poll.
type StatusReport struct {
	Status    Status          `json:"status"`
	Result    *AnalysisResult `json:"result,omitempty"`
	Overall   *int            `json:"overall,omitempty"`
	NextCheck int64           `json:"nextCheck,omitempty"` // unix milliseconds
}

// Status reports whether an analysis of rawURL is running, cached, expired
// or unknown. It never contacts the page or the provider.
func (a *Analyzer) Status(ctx context.Context, rawURL string) (StatusReport, error) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return StatusReport{Status: StatusError}, err
	}

	if a.isInflight(target.Key) {
		return StatusReport{
			Status:    StatusPending,
			NextCheck: a.now().Add(a.pollInterval).UnixMilli(),
		}, nil
	}

	state, result := a.cache.Lookup(ctx, target.Key)
	switch state {
	case EntryFresh:
		overall := result.StatusOverall()
		return StatusReport{Status: StatusComplete, Result: result, Overall: &overall}, nil
	case EntryExpired:
		return StatusReport{Status: StatusExpired}, nil
	default:
		return StatusReport{Status: StatusNotFound}, nil
	}
}
