package usecase

import "sync/atomic"

// Stats summarises diagnoses served by this process.
type Stats struct {
	TotalRequests    int64   `json:"total_requests"`
	Accepted         int64   `json:"accepted"`
	Rejected         int64   `json:"rejected"`
	Failures         int64   `json:"failures"`
	ModelUnavailable int64   `json:"model_unavailable"`
	AcceptRate       float64 `json:"accept_rate"`
}

type counters struct {
	total       atomic.Int64
	accepted    atomic.Int64
	rejected    atomic.Int64
	failures    atomic.Int64
	unavailable atomic.Int64
}

// Stats returns a snapshot of the process counters.
func (uc *DiagnosisUseCase) Stats() Stats {
	s := Stats{
		TotalRequests:    uc.counters.total.Load(),
		Accepted:         uc.counters.accepted.Load(),
		Rejected:         uc.counters.rejected.Load(),
		Failures:         uc.counters.failures.Load(),
		ModelUnavailable: uc.counters.unavailable.Load(),
	}
	if decided := s.Accepted + s.Rejected; decided > 0 {
		s.AcceptRate = float64(s.Accepted) / float64(decided)
	}
	return s
}
