package errors

import "errors"

// Errors raised by the command line itself rather than the signing core.
var (
	// ErrNotInGitRepo indicates the command requires a git repository.
	ErrNotInGitRepo = errors.New("not in a git repository")

	// ErrNoSigningKey indicates no key was configured and none was found in
	// the key store.
	ErrNoSigningKey = errors.New("no signing key configured")

	// ErrNoTrustedKeys indicates verification was requested without an
	// allowed_signers file or explicit key.
	ErrNoTrustedKeys = errors.New("no trusted keys configured")

	// ErrTooManyAttempts indicates every passphrase attempt was rejected.
	ErrTooManyAttempts = errors.New("too many passphrase attempts")
)
