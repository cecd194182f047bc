// Package errors renders sshcommit failures for the command line.
//
// Core types:
//   - CLIError: Wraps errors with message, suggestion, and details
//   - ErrorMessenger: Interface for customizing error messages
//
// The signing packages return sentinel errors (ssh.ErrDecryptionFailed,
// verify.ErrUnknownSigner, ...). WrapKeyError, WrapVerifyError and
// WrapGitError map them to user-facing text; anything unrecognized passes
// through unchanged.
//
// Example usage:
//
//	if err := signer.Commit(ctx, req); err != nil {
//	    return errors.Wrap(err, "HEAD")
//	}
//
//	// Wrap with custom messages
//	type MyMessenger struct{ errors.DefaultMessenger }
//	func (m MyMessenger) NoSigningKeyMessage() (string, string) {
//	    return "No key.", "Run 'myapp keys init'."
//	}
//
//	wrapped := errors.WrapKeyError(err, errors.WithMessenger(MyMessenger{}))
//
//	// Check error types
//	if errors.IsPassphraseError(err) {
//	    // Prompt again
//	}
package errors
