// Command sshcommit creates and verifies SSH-signed git commits.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	clierrors "github.com/randalmurphal/sshcommit/errors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := newApp(stdin, stdout, stderr)
	err := app.RunContext(ctx, args)
	if err == nil {
		return 0
	}

	fmt.Fprintf(stderr, "sshcommit: %v\n", err)

	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if clierrors.IsVerificationError(err) {
		return 1
	}
	return 128
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	a := &app{}

	return &cli.App{
		Name:      "sshcommit",
		Usage:     "Sign git commits with SSH keys",
		Version:   version,
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "repo",
				Aliases: []string{"C"},
				Value:   ".",
				Usage:   "Run as if started in `DIR`",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Object backend: cli (git executable) or gogit",
			},
			&cli.StringFlag{
				Name:    "signing-key",
				Aliases: []string{"S"},
				Usage:   "Private key `PATH`, .pub file or key::<public key> held by ssh-agent",
			},
			&cli.StringFlag{
				Name:  "namespace",
				Usage: "SSH signature namespace",
			},
			&cli.StringFlag{
				Name:  "hash",
				Usage: "Signature hash algorithm (sha256 or sha512)",
			},
			&cli.StringFlag{
				Name:  "ssh-dir",
				Usage: "Key store `DIR` searched for default keys (default ~/.ssh)",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Global config `FILE` (default ~/.config/sshcommit/config.yaml)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log debug output to stderr",
			},
		},
		Before: a.before,
		Commands: []*cli.Command{
			commitCommand(a),
			signCommand(a),
			verifyCommand(a),
			payloadCommand(a),
			keysCommand(a),
			configCommand(a),
		},
		// Errors are reported by run so tests can observe exit codes.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}
