package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/randalmurphal/sshcommit"
	sshauth "github.com/randalmurphal/sshcommit/auth/ssh"
	"github.com/randalmurphal/sshcommit/config"
	clierrors "github.com/randalmurphal/sshcommit/errors"
	"github.com/randalmurphal/sshcommit/git"
	"github.com/randalmurphal/sshcommit/prompt"
)

// app holds state shared by every command.
type app struct {
	logger *slog.Logger

	// tty overrides the terminal used for passphrase prompts.
	tty *prompt.Terminal
}

func (a *app) before(c *cli.Context) error {
	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
	return nil
}

// resolver builds the config resolver for the repository directory.
func (a *app) resolver(c *cli.Context) *config.Resolver {
	rc := config.ResolverConfigFor(c.String("repo"))
	rc.ErrWriter = c.App.ErrWriter
	r := config.NewResolver(rc)
	if path := c.String("config"); path != "" {
		r = config.NewResolverWithPaths(rc, path, r.LocalPath())
	}
	return r
}

// flagOverrides maps command-line flags onto config keys. Flags not
// defined by the running command read as empty and are ignored.
func flagOverrides(c *cli.Context) map[string]string {
	return map[string]string{
		config.KeySigningKey:     c.String("signing-key"),
		config.KeyNamespace:      c.String("namespace"),
		config.KeyHashAlgorithm:  c.String("hash"),
		config.KeyBackend:        c.String("backend"),
		config.KeyRef:            c.String("ref"),
		config.KeyAllowedSigners: c.String("allowed-signers"),
	}
}

// settings resolves the configuration for c.
func (a *app) settings(c *cli.Context) (*config.Settings, error) {
	return config.FromResolved(a.resolver(c).ResolveWithFlags(flagOverrides(c)))
}

// open resolves settings, opens the repository and applies git config
// fallbacks. The backend is attached to the returned context.
func (a *app) open(c *cli.Context) (context.Context, *config.Settings, error) {
	s, err := a.settings(c)
	if err != nil {
		return nil, nil, err
	}

	b, err := git.Open(s.Backend, c.String("repo"))
	if err != nil {
		return nil, nil, clierrors.WrapGitError(err, "")
	}
	ctx := git.ContextWithBackend(c.Context, b)

	if err := s.ApplyGitConfig(ctx, b); err != nil {
		return nil, nil, err
	}

	a.logger.Debug("opened repository",
		"path", b.RepoPath(),
		"backend", string(s.Backend),
		"signing_key", s.SigningKey,
		"signing_key_source", string(s.Source(config.KeySigningKey)),
	)
	return ctx, s, nil
}

// openOptional is open for commands that work outside a repository. The
// context carries no backend when none was found.
func (a *app) openOptional(c *cli.Context) (context.Context, *config.Settings, error) {
	ctx, s, err := a.open(c)
	if err == nil {
		return ctx, s, nil
	}
	if !errors.Is(err, git.ErrNotGitRepo) {
		return nil, nil, err
	}
	a.logger.Debug("not in a git repository", "repo", c.String("repo"))
	s, err = a.settings(c)
	if err != nil {
		return nil, nil, err
	}
	return c.Context, s, nil
}

func (a *app) terminal(c *cli.Context) *prompt.Terminal {
	if a.tty != nil {
		return a.tty
	}
	return prompt.NewTerminal(prompt.WithOutput(c.App.ErrWriter))
}

func keyConfig(c *cli.Context) sshauth.Config {
	return sshauth.Config{SSHDir: c.String("ssh-dir")}
}

// signer builds a Signer from settings. The context must come from open
// or openOptional.
func (a *app) signer(ctx context.Context, c *cli.Context, s *config.Settings) *sshcommit.Signer {
	tty := a.terminal(c)
	label := s.SigningKey
	if label == "" {
		label = "default key"
	}

	attempts := s.PassphraseAttempts
	stderr := c.App.ErrWriter
	load := func(cfg sshauth.Config, path string, pf sshauth.PassphraseFunc) (*sshauth.Key, error) {
		return prompt.LoadWithRetry(func(pf sshauth.PassphraseFunc) (*sshauth.Key, error) {
			return sshauth.LoadWithConfig(cfg, path, pf)
		}, pf, attempts, stderr)
	}

	return sshcommit.New(git.BackendFromContext(ctx),
		sshcommit.WithKey(s.SigningKey),
		sshcommit.WithKeyConfig(keyConfig(c)),
		sshcommit.WithPassphrase(tty.Passphrase(label)),
		sshcommit.WithKeyLoader(load),
		sshcommit.WithNamespace(s.Namespace),
		sshcommit.WithHashAlgorithm(s.HashAlgorithm),
		sshcommit.WithLogger(a.logger),
	)
}

// readInput reads a file argument, "-" meaning standard input.
func readInput(c *cli.Context, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(c.App.Reader)
	}
	return os.ReadFile(name) //nolint:gosec // user-provided path expected
}

// wrapSignError renders a signing failure. With no key configured a
// missing default key means nothing is set up yet.
func wrapSignError(err error, s *config.Settings, ref string) error {
	if s.SigningKey == "" && errors.Is(err, sshauth.ErrKeyNotFound) {
		return clierrors.NewNoSigningKeyError()
	}
	return clierrors.Wrap(err, ref)
}

func shortID(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
