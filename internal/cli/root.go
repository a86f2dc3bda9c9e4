// Package cli implements the thingctl command tree.
package cli

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"thingstore"
	"thingstore/backend"
	"thingstore/thing"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile   string
	EnvFile      string
	Type         string
	Collection   string
	FilePath     string
	LogLevel     string
	LegacyDelete bool

	config thingstore.Config
	logger *logrus.Logger
}

// NewRootCommand creates the root command for thingctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "thingctl",
		Short: "Create, update, delete and read things",
		Long: "thingctl drives the thing service against any configured store.\n" +
			"Backend types: " + strings.Join(backend.Types(), ", ") + ".",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          noArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.HasParent() {
				return nil
			}
			return opts.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before reading STORE_* variables")
	cmd.PersistentFlags().StringVarP(&opts.Type, "type", "t", "", "store type, overrides the configuration")
	cmd.PersistentFlags().StringVar(&opts.Collection, "collection", "", "collection name, overrides the configuration")
	cmd.PersistentFlags().StringVar(&opts.FilePath, "file-path", "", "SQLite file or filesystem root, overrides the configuration")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.LegacyDelete, "legacy-delete", false, "delete only ids that are absent (inverted legacy behaviour)")

	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))

	return cmd
}

// prepare resolves the effective configuration: defaults, then the
// environment (optionally seeded from the dotenv file), then the YAML file,
// then explicit flags.
func (o *RootOptions) prepare(cmd *cobra.Command) error {
	if o.EnvFile != "" {
		if err := godotenv.Load(o.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return WrapExitError(ExitCommandError, "load env file", err)
		}
	}

	cfg, err := thingstore.ConfigFromEnv()
	if err != nil {
		return WrapExitError(ExitCommandError, "read environment", err)
	}
	if o.ConfigFile != "" {
		if cfg, err = thingstore.LoadConfigFileOnto(o.ConfigFile, cfg); err != nil {
			return WrapExitError(ExitCommandError, "load config", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("type") {
		cfg.Type = o.Type
	}
	if flags.Changed("collection") {
		cfg.Collection = o.Collection
	}
	if flags.Changed("file-path") {
		cfg.FilePath = o.FilePath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	o.config = cfg
	o.logger = thingstore.NewLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel)
	return nil
}

// noArgs rejects positional arguments, including unknown subcommand names,
// as a command error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}
	return nil
}

// Config returns the configuration resolved for the running command.
func (o *RootOptions) Config() thingstore.Config {
	return o.config
}

// openService connects the configured store and wraps it in a thing.Service.
func (o *RootOptions) openService(ctx context.Context) (*thing.Service, io.Closer, error) {
	log := logrus.NewEntry(o.logger)

	repo, closer, err := backend.Open[thing.Thing](ctx, o.config, log)
	if err != nil {
		return nil, nil, classify("open store", err)
	}

	policy := thing.DeleteExisting
	if o.LegacyDelete {
		policy = thing.DeleteLegacyInverted
	}
	svc := thing.NewService(repo,
		thing.WithDeletePolicy(policy),
		thing.WithLogger(log),
	)
	return svc, closer, nil
}
