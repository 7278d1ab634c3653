package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/nodetree/internal/config"
)

// Version is reported by --version. Overridden at build time with -ldflags.
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Database   string
	Backend    string
	Driver     string
	Verbose    bool
	Format     string // "json" | "text"

	// Config is resolved from --config and the flag overrides before any
	// subcommand runs.
	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the nodetree CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "nodetree",
		Short:   "nodetree - hierarchical component node store",
		Long:    "Store named nodes in a path-addressed hierarchy, attach numeric properties, and read back whole subtrees.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.resolve(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	flags.StringVar(&opts.Database, "db", "", "storage path (overrides storage.path)")
	flags.StringVar(&opts.Backend, "backend", "", "storage backend: sqlite|badger|memory (overrides storage.backend)")
	flags.StringVar(&opts.Driver, "driver", "", "SQLite driver: sqlite3|sqlite (overrides storage.driver)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewPropCommand(opts))
	cmd.AddCommand(NewSubtreeCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}

// resolve loads the config file, applies explicitly set flags on top and
// installs the default logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Storage.Path = o.Database
	}
	if flags.Changed("backend") {
		cfg.Storage.Backend = o.Backend
	}
	if flags.Changed("driver") {
		cfg.Storage.Driver = o.Driver
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	o.Config = cfg
	o.Logger = newLogger(cfg.Log, cmd.ErrOrStderr())
	slog.SetDefault(o.Logger)
	return nil
}

// newLogger builds the slog handler described by cfg. Levels were checked by
// Config.Validate, so an unparsable level cannot reach here.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(cfg.Level))

	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
