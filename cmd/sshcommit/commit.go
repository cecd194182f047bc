package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/randalmurphal/sshcommit"
	"github.com/randalmurphal/sshcommit/commit"
	clierrors "github.com/randalmurphal/sshcommit/errors"
	"github.com/randalmurphal/sshcommit/git"
)

func commitCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "commit",
		Usage: "Create a signed commit from the index and move the ref to it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "message",
				Aliases: []string{"m"},
				Usage:   "Commit message",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"F"},
				Usage:   "Read the commit message from `FILE` (- for standard input)",
			},
			&cli.StringFlag{
				Name:  "ref",
				Usage: "Ref to move to the new commit (default HEAD)",
			},
			&cli.StringFlag{
				Name:  "tree",
				Usage: "Commit `TREE` instead of writing the index",
			},
			&cli.StringSliceFlag{
				Name:    "parent",
				Aliases: []string{"p"},
				Usage:   "Parent `REV`, repeatable (default: the commit the ref points at)",
			},
			&cli.BoolFlag{
				Name:  "root",
				Usage: "Create a commit with no parents",
			},
			&cli.StringFlag{
				Name:  "author",
				Usage: "Override the author: `\"Name <email>\"`",
			},
			&cli.BoolFlag{
				Name:  "no-update-ref",
				Usage: "Write the commit without moving the ref and print its id",
			},
		},
		Action: a.commit,
	}
}

func (a *app) commit(c *cli.Context) error {
	msg, err := commitMessage(c)
	if err != nil {
		return err
	}

	ctx, s, err := a.open(c)
	if err != nil {
		return err
	}
	b := git.MustBackendFromContext(ctx)

	req := sshcommit.CommitRequest{
		Message:     msg,
		Tree:        c.String("tree"),
		Ref:         s.Ref,
		NoUpdateRef: c.Bool("no-update-ref"),
	}

	if c.Bool("root") {
		req.Parents = []string{}
	}
	for _, rev := range c.StringSlice("parent") {
		id, err := b.ResolveRef(ctx, rev)
		if err != nil {
			return clierrors.WrapGitError(err, rev)
		}
		req.Parents = append(req.Parents, id)
	}

	if author := c.String("author"); author != "" {
		name, email, err := parseAuthor(author)
		if err != nil {
			return err
		}
		req.Author.Name, req.Author.Email = name, email
	}

	res, err := a.signer(ctx, c, s).Commit(ctx, req)
	if err != nil {
		return wrapSignError(err, s, req.Ref)
	}

	if req.NoUpdateRef {
		printf(c.App.Writer, "%s\n", res.ID)
		return nil
	}

	label := res.Ref
	if len(res.Parents) == 0 {
		label += " (root-commit)"
	}
	subject, _, _ := strings.Cut(strings.TrimLeft(msg, "\n"), "\n")
	printf(c.App.Writer, "[%s %s] %s\n", label, shortID(res.ID), subject)
	return nil
}

// commitMessage reads the message from -m or -F and ends it with a
// newline, as git commit-tree does.
func commitMessage(c *cli.Context) (string, error) {
	msg := c.String("message")
	if file := c.String("file"); file != "" {
		if msg != "" {
			return "", errors.New("only one of --message and --file may be given")
		}
		data, err := readInput(c, file)
		if err != nil {
			return "", fmt.Errorf("read message: %w", err)
		}
		msg = string(data)
	}

	if strings.TrimSpace(msg) == "" {
		return "", errors.New("aborting commit due to empty commit message")
	}
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	return msg, nil
}

// parseAuthor parses "Name <email>".
func parseAuthor(s string) (name, email string, err error) {
	name, rest, ok := strings.Cut(s, "<")
	email, tail, closed := strings.Cut(rest, ">")
	if !ok || !closed || strings.TrimSpace(tail) != "" {
		return "", "", fmt.Errorf("%w: author %q: want \"Name <email>\"", commit.ErrInvalidPayload, s)
	}
	return strings.TrimSpace(name), email, nil
}
