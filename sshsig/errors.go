package sshsig

import "errors"

// Signature errors.
var (
	// ErrSigningFailed is returned when the key cannot produce a signature.
	ErrSigningFailed = errors.New("SSH signing failed")

	// ErrMalformedSignature is returned when an armored or binary signature
	// cannot be decoded.
	ErrMalformedSignature = errors.New("malformed SSH signature")

	// ErrNamespaceMismatch is returned when a signature was made for a
	// different namespace than the one being verified.
	ErrNamespaceMismatch = errors.New("SSH signature namespace mismatch")

	// ErrVerificationFailed is returned when the signature does not match
	// the message and public key.
	ErrVerificationFailed = errors.New("SSH signature verification failed")
)
