package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	sshauth "github.com/randalmurphal/sshcommit/auth/ssh"
	clierrors "github.com/randalmurphal/sshcommit/errors"
)

// ErrNotTerminal is returned when no terminal is available to read a
// passphrase from.
var ErrNotTerminal = errors.New("no terminal available for passphrase prompt")

// ttyPath is opened when standard input is not a terminal, e.g. when an
// object is piped to sshcommit sign.
const ttyPath = "/dev/tty"

// Terminal reads passphrases without echo.
type Terminal struct {
	in  *os.File
	out io.Writer

	openTTY      func() (*os.File, error)
	isTerminal   func(fd int) bool
	readPassword func(fd int) ([]byte, error)
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithInput reads passphrases from f instead of standard input.
func WithInput(f *os.File) Option {
	return func(t *Terminal) {
		t.in = f
	}
}

// WithOutput writes prompts to w instead of standard error.
func WithOutput(w io.Writer) Option {
	return func(t *Terminal) {
		t.out = w
	}
}

// NewTerminal creates a Terminal on standard input and standard error.
func NewTerminal(opts ...Option) *Terminal {
	t := &Terminal{
		in:           os.Stdin,
		out:          os.Stderr,
		openTTY:      func() (*os.File, error) { return os.Open(ttyPath) },
		isTerminal:   term.IsTerminal,
		readPassword: term.ReadPassword,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Passphrase returns a supplier that prompts for the passphrase of the key
// at path.
func (t *Terminal) Passphrase(path string) sshauth.PassphraseFunc {
	return func() ([]byte, error) {
		return t.Read(fmt.Sprintf("Enter passphrase for %s: ", path))
	}
}

// Read prints prompt and reads one line without echo. It falls back to the
// controlling terminal when the configured input is not a terminal.
func (t *Terminal) Read(prompt string) ([]byte, error) {
	in := t.in
	if in == nil || !t.isTerminal(int(in.Fd())) {
		tty, err := t.openTTY()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotTerminal, err)
		}
		defer tty.Close()
		if !t.isTerminal(int(tty.Fd())) {
			return nil, ErrNotTerminal
		}
		in = tty
	}

	fmt.Fprint(t.out, prompt)
	pass, err := t.readPassword(int(in.Fd()))
	fmt.Fprintln(t.out)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	return pass, nil
}

// Available reports whether Read can reach a terminal.
func (t *Terminal) Available() bool {
	if t.in != nil && t.isTerminal(int(t.in.Fd())) {
		return true
	}
	tty, err := t.openTTY()
	if err != nil {
		return false
	}
	defer tty.Close()
	return t.isTerminal(int(tty.Fd()))
}

// LoadFunc loads a key with the given passphrase supplier.
type LoadFunc func(sshauth.PassphraseFunc) (*sshauth.Key, error)

// LoadWithRetry calls load up to attempts times while the passphrase is
// rejected, printing a notice to out between attempts. Other errors are
// returned immediately.
func LoadWithRetry(load LoadFunc, passphrase sshauth.PassphraseFunc, attempts int, out io.Writer) (*sshauth.Key, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		key, err := load(passphrase)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, sshauth.ErrDecryptionFailed) {
			return nil, err
		}
		lastErr = err
		if i < attempts-1 && out != nil {
			fmt.Fprintln(out, "Bad passphrase, try again.")
		}
	}

	if attempts == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %w", clierrors.ErrTooManyAttempts, lastErr)
}
