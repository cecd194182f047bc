package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/randalmurphal/sshcommit/config"
)

func configCommand(a *app) *cli.Command {
	scope := &cli.BoolFlag{
		Name:  "local",
		Usage: "Write the repository's .sshcommit.yaml instead of the global file",
	}

	return &cli.Command{
		Name:  "config",
		Usage: "Show or change settings",
		Description: "Keys: " + strings.Join(config.Keys, ", ") + "\n\n" +
			"Values resolve from flags, then SSHCOMMIT_* environment variables,\n" +
			"then .sshcommit.yaml at the repository root, then the global file,\n" +
			"then git config.",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print the resolved value of a key",
				ArgsUsage: "KEY",
				Action:    a.configGet,
			},
			{
				Name:   "list",
				Usage:  "Print every key with its value and source",
				Action: a.configList,
			},
			{
				Name:      "set",
				Usage:     "Save a value",
				ArgsUsage: "KEY VALUE",
				Flags:     []cli.Flag{scope},
				Action:    a.configSet,
			},
			{
				Name:      "unset",
				Usage:     "Remove a saved value",
				ArgsUsage: "KEY",
				Flags:     []cli.Flag{scope},
				Action:    a.configUnset,
			},
		},
	}
}

// resolvedConfig resolves settings including git config fallbacks when
// run inside a repository.
func (a *app) resolvedConfig(c *cli.Context) (*config.Resolved, error) {
	_, s, err := a.openOptional(c)
	if err != nil {
		return nil, err
	}
	return s.Resolved(), nil
}

func (a *app) configGet(c *cli.Context) error {
	key, err := configKeyArg(c, 1)
	if err != nil {
		return err
	}
	res, err := a.resolvedConfig(c)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s\n", res.Get(key))
	return nil
}

func (a *app) configList(c *cli.Context) error {
	res, err := a.resolvedConfig(c)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	for _, key := range config.Keys {
		value, src := res.GetWithSource(key)
		printf(tw, "%s\t%s\t(%s)\n", key, value, src)
	}
	return tw.Flush()
}

func (a *app) configSet(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("usage: sshcommit config set [--local] KEY VALUE")
	}
	key, value := c.Args().Get(0), c.Args().Get(1)

	if err := config.StoreFor(a.resolver(c)).Set(configScope(c), key, value); err != nil {
		return err
	}
	a.logger.Debug("config saved", "key", key, "scope", string(configScope(c)))
	return nil
}

func (a *app) configUnset(c *cli.Context) error {
	key, err := configKeyArg(c, 1)
	if err != nil {
		return err
	}
	return config.StoreFor(a.resolver(c)).Unset(configScope(c), key)
}

func configScope(c *cli.Context) config.Source {
	if c.Bool("local") {
		return config.SourceLocal
	}
	return config.SourceGlobal
}

func configKeyArg(c *cli.Context, want int) (string, error) {
	if c.NArg() != want {
		return "", fmt.Errorf("usage: sshcommit config %s KEY", c.Command.Name)
	}
	key := c.Args().First()
	if !slices.Contains(config.Keys, key) {
		return "", fmt.Errorf("%w: unknown key %q (valid keys: %s)",
			config.ErrInvalidSetting, key, strings.Join(config.Keys, ", "))
	}
	return key, nil
}
