package sshcommit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	sshauth "github.com/randalmurphal/sshcommit/auth/ssh"
	"github.com/randalmurphal/sshcommit/commit"
	"github.com/randalmurphal/sshcommit/git"
	"github.com/randalmurphal/sshcommit/sshsig"
	"github.com/randalmurphal/sshcommit/verify"
)

// KeyLoader loads the signing key for a single operation. The caller
// destroys the returned key.
type KeyLoader func(cfg sshauth.Config, path string, passphrase sshauth.PassphraseFunc) (*sshauth.Key, error)

// Signer creates SSH-signed commits in a repository.
type Signer struct {
	backend    git.Backend
	keyPath    string
	keyConfig  sshauth.Config
	passphrase sshauth.PassphraseFunc
	loadKey    KeyLoader
	namespace  string
	hash       sshsig.HashAlgorithm
	logger     *slog.Logger
	now        func() time.Time
	getenv     func(string) string
}

// Option configures a Signer.
type Option func(*Signer)

// WithKey sets the signing key path. Empty selects the default key in the
// key store; see ssh.LoadWithConfig for agent references.
func WithKey(path string) Option {
	return func(s *Signer) {
		s.keyPath = path
	}
}

// WithKeyConfig sets the key store layout.
func WithKeyConfig(cfg sshauth.Config) Option {
	return func(s *Signer) {
		s.keyConfig = cfg
	}
}

// WithPassphrase sets the passphrase supplier for encrypted keys.
func WithPassphrase(p sshauth.PassphraseFunc) Option {
	return func(s *Signer) {
		s.passphrase = p
	}
}

// WithKeyLoader replaces ssh.LoadWithConfig, e.g. to retry bad passphrases.
func WithKeyLoader(l KeyLoader) Option {
	return func(s *Signer) {
		s.loadKey = l
	}
}

// WithNamespace sets the SSHSIG namespace. Defaults to "git".
func WithNamespace(ns string) Option {
	return func(s *Signer) {
		s.namespace = ns
	}
}

// WithHashAlgorithm sets the SSHSIG message digest. Defaults to sha512.
func WithHashAlgorithm(alg sshsig.HashAlgorithm) Option {
	return func(s *Signer) {
		s.hash = alg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Signer) {
		s.logger = logger
	}
}

// WithClock sets the source of commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		s.now = now
	}
}

// New creates a Signer writing to backend.
func New(backend git.Backend, opts ...Option) *Signer {
	s := &Signer{
		backend:   backend,
		loadKey:   sshauth.LoadWithConfig,
		namespace: sshsig.NamespaceGit,
		hash:      sshsig.DefaultHashAlgorithm,
		now:       time.Now,
		getenv:    os.Getenv,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Backend returns the object backend.
func (s *Signer) Backend() git.Backend {
	return s.backend
}

// Signed is a signed commit object and the key that signed it.
type Signed struct {
	// Payload is the unsigned object that was signed.
	Payload []byte

	// Object is Payload with the signature header embedded.
	Object []byte

	Signature   *sshsig.Signature
	Fingerprint string
	KeyType     string
}

// Sign signs an unsigned commit object. The object is validated first;
// an object that already carries a signature is rejected.
func (s *Signer) Sign(ctx context.Context, payload []byte) (*Signed, error) {
	p, err := commit.Parse(payload)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.sign(ctx, payload)
}

// sign loads the key, signs payload and embeds the signature. The key is
// destroyed before returning.
func (s *Signer) sign(ctx context.Context, payload []byte) (*Signed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := s.loadKey(s.keyConfig, s.keyPath, s.passphrase)
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}
	defer key.Destroy()

	s.logger.Debug("loaded signing key",
		"path", key.Path(),
		"type", key.Type(),
		"fingerprint", key.Fingerprint(),
		"agent", key.FromAgent(),
	)

	sig, err := sshsig.Sign(key, payload, s.namespace, s.hash)
	if err != nil {
		return nil, err
	}

	object, err := commit.Embed(payload, sig.Armor())
	if err != nil {
		return nil, err
	}

	s.logger.Debug("signed payload",
		"namespace", s.namespace,
		"hash", string(s.hash),
		"bytes", len(payload),
	)

	return &Signed{
		Payload:     payload,
		Object:      object,
		Signature:   sig,
		Fingerprint: key.Fingerprint(),
		KeyType:     key.Type(),
	}, nil
}

// CommitRequest describes a commit to create.
type CommitRequest struct {
	// Message is written verbatim.
	Message string

	// Tree is the root tree id. Empty writes the index as a tree.
	Tree string

	// Parents are the parent ids in order. Nil uses the commit Ref points
	// at, or no parent when Ref does not resolve. A non-nil empty slice
	// creates a root commit.
	Parents []string

	// Author and Committer default field by field from GIT_AUTHOR_* and
	// GIT_COMMITTER_* variables, then git config, then the clock.
	Author    commit.Identity
	Committer commit.Identity

	// ExtraHeaders are written after the committer line.
	ExtraHeaders []commit.Header

	// Ref is moved to the new commit. Defaults to HEAD.
	Ref string

	// NoUpdateRef writes the object without moving Ref.
	NoUpdateRef bool
}

// CommitResult describes a created commit.
type CommitResult struct {
	*Signed

	ID      string
	Ref     string
	Tree    string
	Parents []string
}

// Commit builds, signs and writes a commit, then moves the ref to it. The
// ref only moves if it still holds the value read when the commit was
// built.
func (s *Signer) Commit(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	if s.backend == nil {
		return nil, ErrNoBackend
	}

	ref := req.Ref
	if ref == "" {
		ref = "HEAD"
	}

	tree := req.Tree
	if tree == "" {
		var err error
		tree, err = s.backend.WriteTree(ctx)
		if err != nil {
			return nil, fmt.Errorf("write tree: %w", err)
		}
	}

	current, err := s.backend.ResolveRef(ctx, ref)
	if err != nil && !errors.Is(err, git.ErrRefNotFound) {
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}

	parents := req.Parents
	if parents == nil && current != "" {
		parents = []string{current}
	}

	author, err := s.identity(ctx, "author", req.Author)
	if err != nil {
		return nil, err
	}
	committer, err := s.identity(ctx, "committer", req.Committer)
	if err != nil {
		return nil, err
	}

	p := &commit.Payload{
		Tree:         tree,
		Parents:      parents,
		Author:       author,
		Committer:    committer,
		ExtraHeaders: req.ExtraHeaders,
		Message:      req.Message,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	signed, err := s.sign(ctx, p.Bytes())
	if err != nil {
		return nil, err
	}

	id, err := git.WriteCommit(ctx, s.backend, signed.Object)
	if err != nil {
		return nil, fmt.Errorf("write commit: %w", err)
	}

	res := &CommitResult{
		Signed:  signed,
		ID:      id,
		Tree:    tree,
		Parents: parents,
	}

	if req.NoUpdateRef {
		s.logger.Info("wrote signed commit", "id", id, "fingerprint", signed.Fingerprint)
		return res, nil
	}

	oldID := current
	if oldID == "" {
		oldID = git.ZeroID
	}
	if err := s.backend.UpdateRef(ctx, ref, id, oldID, reflogMessage(parents, req.Message)); err != nil {
		return nil, fmt.Errorf("update %s: %w", ref, err)
	}
	res.Ref = ref

	s.logger.Info("created signed commit",
		"id", id,
		"ref", ref,
		"fingerprint", signed.Fingerprint,
	)
	return res, nil
}

// reflogMessage formats the reflog entry the way git commit does.
func reflogMessage(parents []string, message string) string {
	subject, _, _ := strings.Cut(strings.TrimLeft(message, "\n"), "\n")
	switch {
	case len(parents) == 0:
		return "commit (initial): " + subject
	case len(parents) > 1:
		return "commit (merge): " + subject
	}
	return "commit: " + subject
}

// VerifyRevision verifies the signature of the commit rev resolves to.
func VerifyRevision(ctx context.Context, b git.Backend, rev string, v *verify.Verifier) (*verify.Result, error) {
	data, err := git.ReadCommit(ctx, b, rev)
	if err != nil {
		return nil, err
	}
	return v.Verify(data)
}

// SignedPayload returns the payload and armored signature of the commit rev
// resolves to. commit.ErrNotSigned when it has no signature.
func SignedPayload(ctx context.Context, b git.Backend, rev string) (payload, signature []byte, err error) {
	data, err := git.ReadCommit(ctx, b, rev)
	if err != nil {
		return nil, nil, err
	}
	return commit.Extract(data)
}
