package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/randalmurphal/sshcommit"
	sshauth "github.com/randalmurphal/sshcommit/auth/ssh"
	"github.com/randalmurphal/sshcommit/config"
	clierrors "github.com/randalmurphal/sshcommit/errors"
	"github.com/randalmurphal/sshcommit/git"
	"github.com/randalmurphal/sshcommit/verify"
)

func verifyCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Verify the signature of a commit",
		ArgsUsage: "[REV | -]",
		Description: "Verifies REV (default HEAD), or a raw commit object read from\n" +
			"standard input when REV is -. Trusted keys come from the allowed\n" +
			"signers file (gpg.ssh.allowedSignersFile) and --key.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "allowed-signers",
				Usage: "Trust the keys in allowed_signers `FILE`",
			},
			&cli.StringSliceFlag{
				Name:  "key",
				Usage: "Trust the public key in `FILE`, repeatable",
			},
			&cli.StringFlag{
				Name:  "pgp-keyring",
				Usage: "Trust the armored OpenPGP keys in `FILE`",
			},
		},
		Action: a.verify,
	}
}

func (a *app) verify(c *cli.Context) error {
	rev := "HEAD"
	if c.NArg() > 0 {
		rev = c.Args().First()
	}

	ctx, s, err := a.openOptional(c)
	if err != nil {
		return err
	}

	keyring, err := trustedKeys(c, s)
	if err != nil {
		return err
	}
	v := verify.New(keyring, verify.WithNamespace(s.Namespace), verify.WithLogger(a.logger))

	var res *verify.Result
	if rev == "-" {
		data, err := readInput(c, "-")
		if err != nil {
			return err
		}
		res, err = v.Verify(data)
		if err != nil {
			return clierrors.WrapVerifyError(err, "standard input")
		}
	} else {
		b := git.BackendFromContext(ctx)
		if b == nil {
			return clierrors.NewNotInGitRepoError()
		}
		res, err = sshcommit.VerifyRevision(ctx, b, rev, v)
		if err != nil {
			return clierrors.Wrap(err, rev)
		}
	}

	reportResult(c, res)
	return clierrors.WrapVerifyError(res.Err(), rev)
}

// trustedKeys merges every configured source of trusted keys.
func trustedKeys(c *cli.Context, s *config.Settings) (*verify.Keyring, error) {
	keyring := verify.NewKeyring()

	if s.AllowedSigners != "" {
		path, err := sshauth.ExpandPath(s.AllowedSigners)
		if err != nil {
			return nil, err
		}
		allowed, err := verify.LoadAllowedSigners(path)
		if err != nil {
			return nil, err
		}
		for _, e := range allowed.Entries() {
			keyring.AddEntry(e)
		}
	}

	for _, name := range c.StringSlice("key") {
		path, err := sshauth.ExpandPath(name)
		if err != nil {
			return nil, err
		}
		info, err := sshauth.ReadPublicKey(path)
		if err != nil {
			return nil, clierrors.WrapKeyError(err)
		}
		keyring.Add(info.Key)
	}

	if name := c.String("pgp-keyring"); name != "" {
		f, err := os.Open(name) //nolint:gosec // user-provided path expected
		if err != nil {
			return nil, err
		}
		err = keyring.AddArmoredPGP(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
	}

	if keyring.Len() == 0 {
		return nil, clierrors.NewNoTrustedKeysError()
	}
	return keyring, nil
}

// reportResult writes a git verify-commit style summary to stderr.
func reportResult(c *cli.Context, res *verify.Result) {
	w := c.App.ErrWriter
	key := fmt.Sprintf("%s key %s", displayKeyType(res.KeyType), res.Fingerprint)

	switch res.Status {
	case verify.StatusValid:
		if res.Principal != "" {
			printf(w, "Good %q signature for %s with %s\n", res.Namespace, res.Principal, key)
		} else {
			printf(w, "Good %q signature with %s\n", res.Namespace, key)
		}
	case verify.StatusUnknownSigner:
		printf(w, "Signature made with untrusted %s\n", key)
	default:
		printf(w, "BAD signature from %s\n", key)
	}
}

// displayKeyType shortens "ssh-ed25519" to "ED25519" and
// "ecdsa-sha2-nistp256" to "ECDSA".
func displayKeyType(t string) string {
	switch {
	case t == "":
		return "unknown"
	case strings.HasPrefix(t, "ecdsa-"), strings.HasPrefix(t, "sk-ecdsa-"):
		return "ECDSA"
	case strings.HasPrefix(t, "sk-ssh-ed25519"):
		return "ED25519-SK"
	}
	return strings.ToUpper(strings.TrimPrefix(t, "ssh-"))
}
