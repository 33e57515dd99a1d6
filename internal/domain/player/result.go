package player

// Outcome classifies a single stats fetch.
type Outcome int

const (
	// OutcomeOK means Stats holds a fresh snapshot.
	OutcomeOK Outcome = iota
	// OutcomeNoData means the player is unknown, private, or returned nothing usable.
	OutcomeNoData
	// OutcomeTransportFailure means the upstream could not be reached.
	OutcomeTransportFailure
)

// String returns the outcome label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNoData:
		return "no_data"
	case OutcomeTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// FetchResult is what a stats fetch returns instead of an error. The caller
// decides how to degrade; Err only carries the cause for logging.
type FetchResult struct {
	Outcome Outcome
	Stats   PlayerStats
	Err     error
}

// OK reports whether the fetch produced stats.
func (r FetchResult) OK() bool {
	return r.Outcome == OutcomeOK
}

// Found wraps a snapshot as a successful result.
func Found(stats PlayerStats) FetchResult {
	return FetchResult{Outcome: OutcomeOK, Stats: stats}
}

// NoData builds a no-data result with an optional cause.
func NoData(err error) FetchResult {
	return FetchResult{Outcome: OutcomeNoData, Err: err}
}

// TransportFailure builds a failed result.
func TransportFailure(err error) FetchResult {
	return FetchResult{Outcome: OutcomeTransportFailure, Err: err}
}
