package domain

import "errors"

var (
	// ErrConfiguration indicates invalid caller-supplied parameters, such as
	// a chunk overlap that is not smaller than the target size.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrGateway classifies transient embedding gateway failures. The corpus
	// indexer retries these at coarser granularity before dropping work.
	ErrGateway = errors.New("embedding gateway error")

	// ErrEmptyIndex is returned when an index build ends with zero records.
	ErrEmptyIndex = errors.New("no records survived indexing")

	// ErrCorruptIndex is returned when a persisted snapshot is unreadable or
	// was produced with an incompatible embedding dimension.
	ErrCorruptIndex = errors.New("corrupt index snapshot")
)
