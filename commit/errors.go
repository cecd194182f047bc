package commit

import "errors"

// Commit object errors.
var (
	// ErrInvalidPayload is returned when commit fields cannot be serialized
	// into a well-formed commit object, or raw bytes are not one.
	ErrInvalidPayload = errors.New("invalid commit payload")

	// ErrEmbeddingFailed is returned when a signature cannot be spliced into
	// a payload.
	ErrEmbeddingFailed = errors.New("signature embedding failed")

	// ErrNotSigned is returned when a commit object has no signature header.
	ErrNotSigned = errors.New("commit is not signed")
)
