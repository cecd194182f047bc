package main

import (
	"github.com/urfave/cli/v2"

	clierrors "github.com/randalmurphal/sshcommit/errors"
	"github.com/randalmurphal/sshcommit/git"
)

func signCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "sign",
		Usage:     "Sign an unsigned commit object and print the signed object",
		ArgsUsage: "[FILE]",
		Description: "Reads a raw commit object from FILE or standard input and writes it\n" +
			"with a gpgsig header to standard output. Works outside a repository\n" +
			"unless --write is given.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "Store the signed object in the repository and print its id",
			},
		},
		Action: a.sign,
	}
}

func (a *app) sign(c *cli.Context) error {
	input := "-"
	if c.NArg() > 0 {
		input = c.Args().First()
	}

	ctx, s, err := a.openOptional(c)
	if err != nil {
		return err
	}

	data, err := readInput(c, input)
	if err != nil {
		return err
	}

	signed, err := a.signer(ctx, c, s).Sign(ctx, data)
	if err != nil {
		return wrapSignError(err, s, "")
	}

	if !c.Bool("write") {
		_, err := c.App.Writer.Write(signed.Object)
		return err
	}

	b := git.BackendFromContext(ctx)
	if b == nil {
		return clierrors.NewNotInGitRepoError()
	}
	id, err := git.WriteCommit(ctx, b, signed.Object)
	if err != nil {
		return clierrors.WrapGitError(err, "")
	}
	printf(c.App.Writer, "%s\n", id)
	return nil
}
