package verify

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	pgperrors "github.com/ProtonMail/go-crypto/openpgp/errors"

	sshkeys "github.com/randalmurphal/sshcommit/auth/ssh"
	"github.com/randalmurphal/sshcommit/commit"
	"github.com/randalmurphal/sshcommit/sshsig"
)

const pgpArmorHeader = "-----BEGIN PGP SIGNATURE-----"

// Status is the outcome of verifying a signed commit.
type Status int

const (
	// StatusValid means a trusted key produced the signature over the commit.
	StatusValid Status = iota

	// StatusInvalid means the key is trusted but the signature does not
	// match the commit.
	StatusInvalid

	// StatusUnknownSigner means the signing key is not trusted.
	StatusUnknownSigner
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	case StatusUnknownSigner:
		return "unknown signer"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Signature formats found in the signature header.
const (
	FormatSSH     = "ssh"
	FormatOpenPGP = "openpgp"
)

// Result describes a verified commit.
type Result struct {
	Status Status
	Format string

	// Fingerprint identifies the signing key: SHA256:... for SSH keys, the
	// hex primary key fingerprint for OpenPGP.
	Fingerprint string
	KeyType     string

	// Principal is the allowed_signers principal or OpenPGP identity of a
	// trusted signer.
	Principal string

	Namespace string

	// Reason explains a non-valid status.
	Reason error

	// Payload is the commit object without its signature header.
	Payload []byte
}

// Err returns nil for a valid signature, or ErrUnknownSigner /
// ErrInvalidSignature wrapping Reason.
func (r *Result) Err() error {
	switch r.Status {
	case StatusValid:
		return nil
	case StatusUnknownSigner:
		if r.Reason != nil {
			return fmt.Errorf("%w: %w", ErrUnknownSigner, r.Reason)
		}
		return fmt.Errorf("%w: %s", ErrUnknownSigner, r.Fingerprint)
	default:
		if r.Reason != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSignature, r.Reason)
		}
		return ErrInvalidSignature
	}
}

// Verifier checks signed commit objects against a keyring.
type Verifier struct {
	keyring   *Keyring
	namespace string
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithNamespace sets the SSH signature namespace. Defaults to "git".
func WithNamespace(ns string) Option {
	return func(v *Verifier) {
		v.namespace = ns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// WithClock sets the time used for validity windows when the payload's
// committer time cannot be read.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
	}
}

// New creates a verifier trusting the keys in trusted.
func New(trusted *Keyring, opts ...Option) *Verifier {
	v := &Verifier{
		keyring:   trusted,
		namespace: sshsig.NamespaceGit,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v
}

// Verify checks signed against trusted with default options.
func Verify(signed []byte, trusted *Keyring) (*Result, error) {
	return New(trusted).Verify(signed)
}

// Verify checks a signed commit object. An error is returned only when the
// object or its signature cannot be decoded; trust and cryptographic
// failures are reported through Result.Status.
func (v *Verifier) Verify(signed []byte) (*Result, error) {
	payload, armored, err := commit.Extract(signed)
	if err != nil {
		return nil, err
	}

	var res *Result
	switch {
	case sshsig.IsArmored(armored):
		res, err = v.verifySSH(payload, armored)
	case bytes.HasPrefix(bytes.TrimLeft(armored, " \t\r\n"), []byte(pgpArmorHeader)):
		res = v.verifyPGP(payload, armored)
	default:
		return nil, fmt.Errorf("%w: unrecognized signature armor", sshsig.ErrMalformedSignature)
	}
	if err != nil {
		return nil, err
	}

	res.Payload = payload
	v.logger.Debug("verified commit signature",
		"format", res.Format,
		"status", res.Status.String(),
		"fingerprint", res.Fingerprint,
		"principal", res.Principal,
	)
	return res, nil
}

func (v *Verifier) verifySSH(payload, armored []byte) (*Result, error) {
	sig, err := sshsig.Unarmor(armored)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Format:      FormatSSH,
		Fingerprint: sshkeys.Fingerprint(sig.PublicKey),
		KeyType:     sig.PublicKey.Type(),
		Namespace:   sig.Namespace,
	}

	entries, excluded := v.keyring.lookup(sig.PublicKey, v.namespace)
	if len(entries) == 0 {
		res.Status = StatusUnknownSigner
		if excluded {
			res.Reason = fmt.Errorf("key %s is not allowed for namespace %q", res.Fingerprint, v.namespace)
		}
		return res, nil
	}

	signedAt := v.signingTime(payload)
	var entry *Entry
	for _, e := range entries {
		if e.ValidAt(signedAt) {
			entry = e
			break
		}
	}
	if entry == nil {
		res.Status = StatusInvalid
		res.Reason = fmt.Errorf("key %s is not valid at %s", res.Fingerprint, signedAt.Format(time.RFC3339))
		return res, nil
	}
	res.Principal = strings.Join(entry.Principals, ",")

	if err := sig.Verify(payload, v.namespace); err != nil {
		res.Status = StatusInvalid
		res.Reason = err
		return res, nil
	}

	res.Status = StatusValid
	return res, nil
}

// signingTime is the committer time, as git passes to ssh-keygen -Y verify.
func (v *Verifier) signingTime(payload []byte) time.Time {
	if p, err := commit.Parse(payload); err == nil {
		return p.Committer.When
	}
	return v.now()
}

func (v *Verifier) verifyPGP(payload, armored []byte) *Result {
	res := &Result{Format: FormatOpenPGP}
	if v.keyring == nil || len(v.keyring.pgp) == 0 {
		res.Status = StatusUnknownSigner
		res.Reason = errors.New("no OpenPGP keys configured")
		return res
	}

	entity, err := openpgp.CheckArmoredDetachedSignature(v.keyring.pgp, bytes.NewReader(payload), bytes.NewReader(armored), nil)
	if entity != nil {
		res.Fingerprint = strings.ToUpper(hex.EncodeToString(entity.PrimaryKey.Fingerprint))
		res.Principal = pgpIdentity(entity)
	}
	switch {
	case errors.Is(err, pgperrors.ErrUnknownIssuer):
		res.Status = StatusUnknownSigner
		res.Reason = err
	case err != nil:
		res.Status = StatusInvalid
		res.Reason = err
	default:
		res.Status = StatusValid
	}
	return res
}

func pgpIdentity(e *openpgp.Entity) string {
	names := make([]string, 0, len(e.Identities))
	for name := range e.Identities {
		names = append(names, name)
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return names[0]
}
