package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/randalmurphal/sshcommit/git"
	"github.com/randalmurphal/sshcommit/sshsig"
)

// Configuration keys.
const (
	KeySigningKey         = "signing_key"
	KeyNamespace          = "namespace"
	KeyHashAlgorithm      = "hash_algorithm"
	KeyAllowedSigners     = "allowed_signers"
	KeyBackend            = "backend"
	KeyRef                = "ref"
	KeyPassphraseAttempts = "passphrase_attempts"
)

// EnvPrefix prefixes environment overrides, e.g. SSHCOMMIT_SIGNING_KEY.
const EnvPrefix = "SSHCOMMIT_"

// ErrInvalidSetting indicates a configuration value failed validation.
var ErrInvalidSetting = errors.New("invalid setting")

// Keys lists every configuration key.
var Keys = []string{
	KeySigningKey,
	KeyNamespace,
	KeyHashAlgorithm,
	KeyAllowedSigners,
	KeyBackend,
	KeyRef,
	KeyPassphraseAttempts,
}

// Defaults returns the built-in value of every key.
func Defaults() map[string]string {
	return map[string]string{
		KeySigningKey:         "",
		KeyNamespace:          sshsig.NamespaceGit,
		KeyHashAlgorithm:      string(sshsig.DefaultHashAlgorithm),
		KeyAllowedSigners:     "",
		KeyBackend:            string(git.KindCLI),
		KeyRef:                "HEAD",
		KeyPassphraseAttempts: "3",
	}
}

// gitFallbacks maps keys to the git config entries git itself uses for
// SSH signing.
var gitFallbacks = map[string]string{
	KeySigningKey:     "user.signingkey",
	KeyAllowedSigners: "gpg.ssh.allowedSignersFile",
}

// ResolverConfigFor returns the resolver layout: ~/.config/sshcommit/config.yaml,
// .sshcommit.yaml in the git root containing startDir, SSHCOMMIT_* env.
func ResolverConfigFor(startDir string) ResolverConfig {
	return ResolverConfig{
		EnvPrefix:       EnvPrefix,
		GlobalConfigDir: "sshcommit",
		LocalConfigName: ".sshcommit.yaml",
		StartDir:        startDir,
		Defaults:        Defaults(),
		ValidKeys:       Keys,
	}
}

// Settings is the typed, validated configuration.
type Settings struct {
	SigningKey         string
	Namespace          string
	HashAlgorithm      sshsig.HashAlgorithm
	AllowedSigners     string
	Backend            git.Kind
	Ref                string
	PassphraseAttempts int

	resolved *Resolved
}

// LoadOptions controls Load.
type LoadOptions struct {
	// StartDir locates the local config. Defaults to ".".
	StartDir string

	// Flags are command-line overrides keyed by config key.
	Flags map[string]string

	// GlobalPath and LocalPath override file discovery when set.
	GlobalPath string
	LocalPath  string

	// ErrWriter receives resolver warnings. Defaults to os.Stderr.
	ErrWriter io.Writer
}

// Load resolves and validates settings. Git config fallbacks are not
// applied; see ApplyGitConfig.
func Load(opts LoadOptions) (*Settings, error) {
	rc := ResolverConfigFor(opts.StartDir)
	rc.ErrWriter = opts.ErrWriter

	var r *Resolver
	if opts.GlobalPath != "" || opts.LocalPath != "" {
		r = NewResolverWithPaths(rc, opts.GlobalPath, opts.LocalPath)
	} else {
		r = NewResolver(rc)
	}

	return FromResolved(r.ResolveWithFlags(opts.Flags))
}

// FromResolved validates resolved values into Settings.
func FromResolved(res *Resolved) (*Settings, error) {
	s := &Settings{resolved: res}
	if err := s.refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) refresh() error {
	res := s.resolved
	for _, key := range Keys {
		if err := ValidateValue(key, res.Get(key)); err != nil {
			return fmt.Errorf("%w (from %s)", err, res.Source(key))
		}
	}

	s.SigningKey = res.Get(KeySigningKey)
	s.Namespace = res.Get(KeyNamespace)
	s.HashAlgorithm, _ = sshsig.ParseHashAlgorithm(res.Get(KeyHashAlgorithm))
	s.AllowedSigners = res.Get(KeyAllowedSigners)
	s.Backend = git.Kind(res.Get(KeyBackend))
	s.Ref = res.Get(KeyRef)
	s.PassphraseAttempts, _ = strconv.Atoi(res.Get(KeyPassphraseAttempts))
	return nil
}

// Source returns where key's value came from.
func (s *Settings) Source(key string) Source {
	return s.resolved.Source(key)
}

// Resolved returns the raw resolved values.
func (s *Settings) Resolved() *Resolved {
	return s.resolved
}

// ConfigReader reads git config values.
type ConfigReader interface {
	ConfigValue(ctx context.Context, key string) (string, bool, error)
}

// ApplyGitConfig fills keys still at their default from git config, so
// user.signingkey and gpg.ssh.allowedSignersFile work as they do for git.
func (s *Settings) ApplyGitConfig(ctx context.Context, gc ConfigReader) error {
	changed := false
	for key, gitKey := range gitFallbacks {
		if s.resolved.Source(key) != SourceDefault {
			continue
		}
		v, ok, err := gc.ConfigValue(ctx, gitKey)
		if err != nil {
			return fmt.Errorf("read git config %s: %w", gitKey, err)
		}
		if ok && v != "" {
			s.resolved.Set(key, v, SourceGit)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.refresh()
}

// ValidateValue checks a single key/value pair.
func ValidateValue(key, value string) error {
	switch key {
	case KeyNamespace, KeyRef:
		if value == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidSetting, key)
		}
	case KeyHashAlgorithm:
		if _, err := sshsig.ParseHashAlgorithm(value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidSetting, key, err)
		}
	case KeyBackend:
		switch git.Kind(value) {
		case git.KindCLI, git.KindGoGit:
		default:
			return fmt.Errorf("%w: %s: %q (want %s or %s)", ErrInvalidSetting, key, value, git.KindCLI, git.KindGoGit)
		}
	case KeyPassphraseAttempts:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: %s: %q (want a positive integer)", ErrInvalidSetting, key, value)
		}
	case KeySigningKey, KeyAllowedSigners:
	default:
		return fmt.Errorf("%w: unknown key %q", ErrInvalidSetting, key)
	}
	return nil
}
