package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/noah-isme/skp-companion/internal/app"
	"github.com/noah-isme/skp-companion/internal/config"
)

type cli struct {
	viper     *viper.Viper
	cfgFile   string
	container *app.Container
	// build assembles the container once configuration is resolved.
	build func(cmd *cobra.Command, cfg config.Config) (*app.Container, error)
}

func newCLI() *cli {
	return &cli{
		viper: viper.New(),
		build: func(cmd *cobra.Command, cfg config.Config) (*app.Container, error) {
			return app.Build(cmd.Context(), cfg, app.NewLogger(cfg, cmd.ErrOrStderr()))
		},
	}
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:          "skpctl",
		Short:        "Submit and manage student activity point claims",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}

	c.setupFlags(root)

	root.AddCommand(
		newLoginCommand(c),
		newLogoutCommand(c),
		newStatusCommand(c),
		newProfileCommand(c),
		newSubmitCommand(c),
		newPendingCommand(c),
	)
	return root
}

func (c *cli) setupFlags(cmd *cobra.Command) {
	defaults := viper.New()
	config.ApplyDefaults(defaults)

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "Path to configuration file")
	flags.String("remote-url", defaults.GetString("remote.base_url"), "Base URL of the SKP service")
	flags.String("store", defaults.GetString("store.driver"), "Local store driver (sqlite, postgres, redis, memory)")
	flags.String("sqlite-path", defaults.GetString("store.sqlite_path"), "SQLite store path")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	c.bindFlag(cmd, "remote.base_url", "remote-url")
	c.bindFlag(cmd, "store.driver", "store")
	c.bindFlag(cmd, "store.sqlite_path", "sqlite-path")
	c.bindFlag(cmd, "log.level", "log-level")
}

func (c *cli) bindFlag(cmd *cobra.Command, key, flag string) {
	if err := c.viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func (c *cli) open(cmd *cobra.Command) error {
	if c.cfgFile != "" {
		c.viper.SetConfigFile(c.cfgFile)
		if err := c.viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return err
			}
		}
	}

	cfg, err := config.LoadFrom(c.viper)
	if err != nil {
		return err
	}

	container, err := c.build(cmd, cfg)
	if err != nil {
		return err
	}
	c.container = container
	return nil
}

func (c *cli) close() error {
	if c.container == nil {
		return nil
	}
	err := c.container.Close()
	c.container = nil
	return err
}

func printJSON(out io.Writer, value interface{}) error {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(encoded))
	return err
}
