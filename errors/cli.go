package errors

import (
	"errors"
	"fmt"
	"strings"

	sshauth "github.com/randalmurphal/sshcommit/auth/ssh"
	"github.com/randalmurphal/sshcommit/commit"
	"github.com/randalmurphal/sshcommit/git"
	"github.com/randalmurphal/sshcommit/sshsig"
	"github.com/randalmurphal/sshcommit/verify"
)

// CLIError wraps an error with user-friendly context and suggestions.
type CLIError struct {
	// Err is the underlying error
	Err error

	// Message is a user-friendly description of what went wrong
	Message string

	// Suggestion is an actionable hint for the user
	Suggestion string

	// Details provides additional context (optional)
	Details string
}

func (e *CLIError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Details != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Details)
	}

	if e.Suggestion != "" {
		sb.WriteString("\n\n")
		sb.WriteString(e.Suggestion)
	}

	return sb.String()
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// ErrorMessenger provides customizable error messages.
// Implement this interface to customize suggestions for your CLI.
type ErrorMessenger interface {
	// KeyNotFoundMessage is used when the signing key does not exist.
	KeyNotFoundMessage() (message, suggestion string)

	// UnsupportedKeyMessage is used when a key file cannot be parsed.
	UnsupportedKeyMessage() (message, suggestion string)

	// PassphraseRequiredMessage is used when an encrypted key was given no passphrase.
	PassphraseRequiredMessage() (message, suggestion string)

	// DecryptionFailedMessage is used when the passphrase is wrong.
	DecryptionFailedMessage() (message, suggestion string)

	// AgentMessage is used when ssh-agent is unreachable or lacks the key.
	AgentMessage() (message, suggestion string)

	// SigningFailedMessage is used when the key cannot produce a signature.
	SigningFailedMessage() (message, suggestion string)

	// InvalidPayloadMessage is used for malformed commit objects.
	InvalidPayloadMessage() (message, suggestion string)

	// NotSignedMessage is used when a commit carries no signature.
	NotSignedMessage(rev string) (message, suggestion string)

	// UnknownSignerMessage is used when the signer is not trusted.
	UnknownSignerMessage(rev string) (message, suggestion string)

	// InvalidSignatureMessage is used when a signature does not match.
	InvalidSignatureMessage(rev string) (message, suggestion string)

	// NotInGitRepoMessage is used when no repository was found.
	NotInGitRepoMessage() (message, suggestion string)

	// RefNotFoundMessage is used when a revision does not resolve.
	RefNotFoundMessage(rev string) (message, suggestion string)

	// RefConflictMessage is used when a ref moved while committing.
	RefConflictMessage(ref string) (message, suggestion string)

	// NoSigningKeyMessage is used when no key is configured or discoverable.
	NoSigningKeyMessage() (message, suggestion string)

	// NoTrustedKeysMessage is used when verification has nothing to trust.
	NoTrustedKeysMessage() (message, suggestion string)
}

// DefaultMessenger provides default error messages.
type DefaultMessenger struct{}

func (m DefaultMessenger) KeyNotFoundMessage() (string, string) {
	return "The signing key could not be found.",
		"Check signing_key (or git's user.signingkey) points at an existing key file."
}

func (m DefaultMessenger) UnsupportedKeyMessage() (string, string) {
	return "The signing key is not in a supported format.",
		"Use an OpenSSH or PEM encoded ed25519, ECDSA or RSA key."
}

func (m DefaultMessenger) PassphraseRequiredMessage() (string, string) {
	return "The signing key is encrypted and no passphrase was given.",
		"Run from a terminal so the passphrase can be entered, or add the key to ssh-agent."
}

func (m DefaultMessenger) DecryptionFailedMessage() (string, string) {
	return "The passphrase did not decrypt the signing key.",
		"Check the passphrase and try again."
}

func (m DefaultMessenger) AgentMessage() (string, string) {
	return "The key could not be used through ssh-agent.",
		"Check SSH_AUTH_SOCK is set and run 'ssh-add -l' to list loaded keys."
}

func (m DefaultMessenger) SigningFailedMessage() (string, string) {
	return "The key could not sign the commit.",
		"If the key lives in ssh-agent or on a hardware token, check it is unlocked."
}

func (m DefaultMessenger) InvalidPayloadMessage() (string, string) {
	return "The commit object is malformed.",
		"Provide a tree, author and committer, and a message without NUL bytes."
}

func (m DefaultMessenger) NotSignedMessage(rev string) (string, string) {
	return fmt.Sprintf("Commit %s is not signed.", rev),
		"Sign it with 'sshcommit sign' or amend it with 'sshcommit commit'."
}

func (m DefaultMessenger) UnknownSignerMessage(rev string) (string, string) {
	return fmt.Sprintf("Commit %s was signed by an untrusted key.", rev),
		"Add the signer to allowed_signers or pass the key with --key."
}

func (m DefaultMessenger) InvalidSignatureMessage(rev string) (string, string) {
	return fmt.Sprintf("Commit %s has a BAD signature.", rev),
		"The commit was modified after signing or the signature is corrupt."
}

func (m DefaultMessenger) NotInGitRepoMessage() (string, string) {
	return "This command must be run from within a git repository.",
		"Run this command from a git repository or pass --repo."
}

func (m DefaultMessenger) RefNotFoundMessage(rev string) (string, string) {
	return fmt.Sprintf("Revision %s does not name a commit.", rev),
		"Check the branch, tag or commit id."
}

func (m DefaultMessenger) RefConflictMessage(ref string) (string, string) {
	return fmt.Sprintf("%s moved while the commit was being written.", ref),
		"Another process updated the branch. Run the command again."
}

func (m DefaultMessenger) NoSigningKeyMessage() (string, string) {
	return "No signing key is configured.",
		"Set one with 'sshcommit config set signing_key ~/.ssh/id_ed25519' or git config user.signingkey."
}

func (m DefaultMessenger) NoTrustedKeysMessage() (string, string) {
	return "No trusted keys are configured for verification.",
		"Set allowed_signers (or gpg.ssh.allowedSignersFile) or pass --key."
}

// WrapConfig configures error wrapping behavior.
type WrapConfig struct {
	Messenger ErrorMessenger
}

// Option configures WrapConfig.
type Option func(*WrapConfig)

// WithMessenger sets a custom error messenger.
func WithMessenger(m ErrorMessenger) Option {
	return func(c *WrapConfig) {
		c.Messenger = m
	}
}

func getMessenger(opts []Option) ErrorMessenger {
	cfg := &WrapConfig{
		Messenger: DefaultMessenger{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg.Messenger
}

func newCLIError(err error, msg, suggestion string) *CLIError {
	return &CLIError{
		Err:        err,
		Message:    msg,
		Suggestion: suggestion,
		Details:    err.Error(),
	}
}

// WrapKeyError wraps key loading and signing errors with helpful guidance.
// Errors it does not recognize are returned unchanged.
func WrapKeyError(err error, opts ...Option) error {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	messenger := getMessenger(opts)
	var msg, suggestion string
	switch {
	case errors.Is(err, ErrNoSigningKey), errors.Is(err, sshauth.ErrNoSSHKeys):
		msg, suggestion = messenger.NoSigningKeyMessage()
	case errors.Is(err, sshauth.ErrNoSSHAgent):
		msg, suggestion = messenger.AgentMessage()
	case errors.Is(err, sshauth.ErrKeyNotFound):
		if strings.Contains(err.Error(), "agent") {
			msg, suggestion = messenger.AgentMessage()
		} else {
			msg, suggestion = messenger.KeyNotFoundMessage()
		}
	case errors.Is(err, sshauth.ErrUnsupportedKeyFormat), errors.Is(err, sshauth.ErrInvalidKeyFormat):
		msg, suggestion = messenger.UnsupportedKeyMessage()
	case errors.Is(err, sshauth.ErrPassphraseRequired):
		msg, suggestion = messenger.PassphraseRequiredMessage()
	case errors.Is(err, sshauth.ErrDecryptionFailed), errors.Is(err, ErrTooManyAttempts):
		msg, suggestion = messenger.DecryptionFailedMessage()
	case errors.Is(err, sshsig.ErrSigningFailed), errors.Is(err, sshauth.ErrKeyDestroyed):
		msg, suggestion = messenger.SigningFailedMessage()
	case errors.Is(err, commit.ErrInvalidPayload), errors.Is(err, commit.ErrEmbeddingFailed):
		msg, suggestion = messenger.InvalidPayloadMessage()
	default:
		return err
	}
	return newCLIError(err, msg, suggestion)
}

// WrapVerifyError wraps verification errors for rev with helpful guidance.
func WrapVerifyError(err error, rev string, opts ...Option) error {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	messenger := getMessenger(opts)
	var msg, suggestion string
	switch {
	case errors.Is(err, commit.ErrNotSigned):
		msg, suggestion = messenger.NotSignedMessage(rev)
	case errors.Is(err, verify.ErrUnknownSigner):
		msg, suggestion = messenger.UnknownSignerMessage(rev)
	case errors.Is(err, verify.ErrInvalidSignature),
		errors.Is(err, sshsig.ErrVerificationFailed),
		errors.Is(err, sshsig.ErrNamespaceMismatch),
		errors.Is(err, sshsig.ErrMalformedSignature):
		msg, suggestion = messenger.InvalidSignatureMessage(rev)
	case errors.Is(err, ErrNoTrustedKeys):
		msg, suggestion = messenger.NoTrustedKeysMessage()
	default:
		return err
	}
	return newCLIError(err, msg, suggestion)
}

// WrapGitError wraps repository errors with helpful guidance. ref names
// the revision or ref involved.
func WrapGitError(err error, ref string, opts ...Option) error {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	messenger := getMessenger(opts)
	var msg, suggestion string
	switch {
	case errors.Is(err, git.ErrNotGitRepo), errors.Is(err, ErrNotInGitRepo):
		msg, suggestion = messenger.NotInGitRepoMessage()
	case errors.Is(err, git.ErrRefNotFound), errors.Is(err, git.ErrObjectNotFound), errors.Is(err, git.ErrNotCommit):
		msg, suggestion = messenger.RefNotFoundMessage(ref)
	case errors.Is(err, git.ErrRefConflict):
		msg, suggestion = messenger.RefConflictMessage(ref)
	default:
		return err
	}
	return newCLIError(err, msg, suggestion)
}

// Wrap applies every wrapper in turn. ref names the revision involved, if any.
func Wrap(err error, ref string, opts ...Option) error {
	if err == nil {
		return nil
	}
	if w := WrapKeyError(err, opts...); w != err {
		return w
	}
	if w := WrapVerifyError(err, ref, opts...); w != err {
		return w
	}
	return WrapGitError(err, ref, opts...)
}

// NewNotInGitRepoError creates an error for commands that require a git repository.
func NewNotInGitRepoError(opts ...Option) error {
	messenger := getMessenger(opts)
	msg, suggestion := messenger.NotInGitRepoMessage()
	return &CLIError{
		Err:        ErrNotInGitRepo,
		Message:    msg,
		Suggestion: suggestion,
	}
}

// NewNoSigningKeyError creates an error when no signing key is available.
func NewNoSigningKeyError(opts ...Option) error {
	messenger := getMessenger(opts)
	msg, suggestion := messenger.NoSigningKeyMessage()
	return &CLIError{
		Err:        ErrNoSigningKey,
		Message:    msg,
		Suggestion: suggestion,
	}
}

// NewNoTrustedKeysError creates an error when verification has no trusted keys.
func NewNoTrustedKeysError(opts ...Option) error {
	messenger := getMessenger(opts)
	msg, suggestion := messenger.NoTrustedKeysMessage()
	return &CLIError{
		Err:        ErrNoTrustedKeys,
		Message:    msg,
		Suggestion: suggestion,
	}
}
