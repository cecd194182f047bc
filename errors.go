package sshcommit

import "errors"

// Pipeline errors.
var (
	// ErrMissingIdentity indicates no author or committer name and email
	// could be determined from the request, the environment or git config.
	ErrMissingIdentity = errors.New("author identity unknown")

	// ErrNoBackend indicates a Signer was created without an object backend.
	ErrNoBackend = errors.New("no git backend configured")
)
