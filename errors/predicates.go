package errors

import (
	"errors"

	sshauth "github.com/randalmurphal/sshcommit/auth/ssh"
	"github.com/randalmurphal/sshcommit/commit"
	"github.com/randalmurphal/sshcommit/git"
	"github.com/randalmurphal/sshcommit/sshsig"
	"github.com/randalmurphal/sshcommit/verify"
)

func isAny(err error, targets ...error) bool {
	if err == nil {
		return false
	}
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsKeyError checks if an error concerns locating or parsing a signing key.
func IsKeyError(err error) bool {
	return isAny(err,
		ErrNoSigningKey,
		sshauth.ErrKeyNotFound,
		sshauth.ErrNoSSHKeys,
		sshauth.ErrNoSSHAgent,
		sshauth.ErrUnsupportedKeyFormat,
		sshauth.ErrInvalidKeyFormat,
		sshauth.ErrKeyDestroyed,
	)
}

// IsPassphraseError checks if an error is a missing or wrong passphrase.
// Callers retry only on ssh.ErrDecryptionFailed.
func IsPassphraseError(err error) bool {
	return isAny(err,
		sshauth.ErrPassphraseRequired,
		sshauth.ErrDecryptionFailed,
		ErrTooManyAttempts,
	)
}

// IsVerificationError checks if an error is a missing, untrusted or bad
// signature.
func IsVerificationError(err error) bool {
	return isAny(err,
		commit.ErrNotSigned,
		verify.ErrUnknownSigner,
		verify.ErrInvalidSignature,
		sshsig.ErrVerificationFailed,
		sshsig.ErrNamespaceMismatch,
		sshsig.ErrMalformedSignature,
	)
}

// IsGitError checks if an error comes from the repository rather than
// the signing path.
func IsGitError(err error) bool {
	if isAny(err,
		ErrNotInGitRepo,
		git.ErrNotGitRepo,
		git.ErrRefNotFound,
		git.ErrRefConflict,
		git.ErrObjectNotFound,
		git.ErrNotCommit,
	) {
		return true
	}
	var gitErr *git.Error
	return errors.As(err, &gitErr)
}
