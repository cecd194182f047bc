package main

import (
	"github.com/urfave/cli/v2"

	"github.com/randalmurphal/sshcommit"
	"github.com/randalmurphal/sshcommit/commit"
	clierrors "github.com/randalmurphal/sshcommit/errors"
	"github.com/randalmurphal/sshcommit/git"
)

func payloadCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "payload",
		Usage:     "Print the bytes a commit signature covers",
		ArgsUsage: "[REV | -]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "signature",
				Usage: "Print the armored signature instead of the payload",
			},
		},
		Action: a.payload,
	}
}

func (a *app) payload(c *cli.Context) error {
	rev := "HEAD"
	if c.NArg() > 0 {
		rev = c.Args().First()
	}

	var payload, sig []byte
	if rev == "-" {
		data, err := readInput(c, "-")
		if err != nil {
			return err
		}
		if payload, sig, err = commit.Extract(data); err != nil {
			return clierrors.WrapVerifyError(err, "standard input")
		}
	} else {
		ctx, _, err := a.open(c)
		if err != nil {
			return err
		}
		if payload, sig, err = sshcommit.SignedPayload(ctx, git.MustBackendFromContext(ctx), rev); err != nil {
			return clierrors.Wrap(err, rev)
		}
	}

	out := payload
	if c.Bool("signature") {
		out = sig
	}
	_, err := c.App.Writer.Write(out)
	return err
}
