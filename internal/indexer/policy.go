package indexer

import "time"

// BackoffPolicy makes the indexer's retry behavior explicit and injectable
// instead of hardcoding batch sizes and sleeps in the embedding loop.
type BackoffPolicy struct {
	// BatchSize is the number of chunks embedded per gateway call.
	BatchSize int
	// MaxAttempts bounds gateway attempts per degraded call (halved batch
	// or single item).
	MaxAttempts int
	// Backoff is the wait between degraded attempts.
	Backoff time.Duration
	// InterBatchDelay paces consecutive batch calls to respect the
	// gateway's rate limit.
	InterBatchDelay time.Duration
	// PerItemDelay paces individual embeddings during the per-item
	// fallback.
	PerItemDelay time.Duration
}

// DefaultPolicy returns the production defaults.
func DefaultPolicy() BackoffPolicy {
	return BackoffPolicy{
		BatchSize:       20,
		MaxAttempts:     2,
		Backoff:         2 * time.Second,
		InterBatchDelay: 500 * time.Millisecond,
		PerItemDelay:    200 * time.Millisecond,
	}
}

func (p BackoffPolicy) normalized() BackoffPolicy {
	d := DefaultPolicy()
	if p.BatchSize <= 0 {
		p.BatchSize = d.BatchSize
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.Backoff <= 0 {
		p.Backoff = d.Backoff
	}
	if p.InterBatchDelay <= 0 {
		p.InterBatchDelay = d.InterBatchDelay
	}
	if p.PerItemDelay <= 0 {
		p.PerItemDelay = d.PerItemDelay
	}
	return p
}
