package main

import (
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	sshauth "github.com/randalmurphal/sshcommit/auth/ssh"
	clierrors "github.com/randalmurphal/sshcommit/errors"
)

func keysCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "List SSH keys usable for signing",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "agent",
				Usage: "List keys held by ssh-agent instead of the key store",
			},
		},
		Action: a.keys,
	}
}

func (a *app) keys(c *cli.Context) error {
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if c.Bool("agent") {
		conn, err := sshauth.GetAgent()
		if err != nil {
			return clierrors.WrapKeyError(err)
		}
		defer conn.Close()

		keys, err := sshauth.ListAgentKeys(conn)
		if err != nil {
			return clierrors.WrapKeyError(err)
		}
		for _, k := range keys {
			printf(tw, "%s\t%s\t%s\n", sshauth.ComputeFingerprint(k.Blob), k.Format, k.Comment)
		}
		return nil
	}

	keys, err := sshauth.ListLocalKeysWithConfig(keyConfig(c))
	if err != nil {
		return clierrors.WrapKeyError(err)
	}
	for _, k := range keys {
		path := k.PrivateKeyPath
		if path == "" {
			path = k.Path + " (public only)"
		} else if k.Encrypted {
			path += " (encrypted)"
		}
		printf(tw, "%s\t%s\t%s\n", k.Fingerprint, k.KeyType, path)
	}
	return nil
}
