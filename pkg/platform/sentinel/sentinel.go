package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about stored rows, not validation failures:
// - ErrNotFound: entity does not exist in the store
// - ErrConflict: a uniqueness rule blocked the write (active match, duplicate rating)
// - ErrInvalidState: row not in the state the conditional write required
// - ErrSerialization: the storage engine aborted the transaction; retryable once
// - ErrUnavailable: backing service temporarily unreachable
//
// For validation errors use pkg/domain-errors directly.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidState  = errors.New("invalid state")
	ErrSerialization = errors.New("serialization failure")
	ErrUnavailable   = errors.New("unavailable")
)
