package types

import "errors"

// Domain errors shared across packages
var (
	// Configuration errors. These indicate a mismatch between the index layout
	// and how it is being read, and are not recoverable by retrying.
	ErrInvalidGeometry    = errors.New("invalid chunk geometry")
	ErrChunkOutOfRange    = errors.New("chunk outside document range")
	ErrUnknownDoc         = errors.New("unknown document")
	ErrEmptyChunkSeek     = errors.New("seek landed on a chunk with no words")
	ErrBackwardMark       = errors.New("mark is before the starting mark")
	ErrMarkMismatch       = errors.New("marks belong to different documents")
	ErrNotPositioned      = errors.New("iterator is not positioned on a word")
	ErrUnknownGranularity = errors.New("unknown position granularity")
	ErrFieldMismatch      = errors.New("clauses must have the same field")
	ErrNoDocNumMap        = errors.New("document number map not set")
	ErrExplainUnsupported = errors.New("explain is not supported")

	// ErrExcessiveWork is raised by a work limiter when a query exceeds its
	// budget. Callers may convert it into a partial result.
	ErrExcessiveWork = errors.New("query exceeded its work limit")

	// Search result errors
	ErrInvalidDoc    = errors.New("invalid document number")
	ErrInvalidSpan   = errors.New("span end must not precede its start")
	ErrEmptyTerm     = errors.New("term cannot be empty")
	ErrMultiWordTerm = errors.New("term must be a single word")
	ErrEmptyContent  = errors.New("content cannot be empty")
)
