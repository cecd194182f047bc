package verify

import "errors"

// Verification errors.
var (
	// ErrUnknownSigner is returned by Result.Err when the signing key is not
	// trusted for the namespace.
	ErrUnknownSigner = errors.New("signature made by an untrusted key")

	// ErrInvalidSignature is returned by Result.Err when a trusted key's
	// signature does not match the commit.
	ErrInvalidSignature = errors.New("invalid commit signature")

	// ErrInvalidAllowedSigners is returned when an allowed_signers file
	// cannot be parsed.
	ErrInvalidAllowedSigners = errors.New("invalid allowed_signers entry")
)
