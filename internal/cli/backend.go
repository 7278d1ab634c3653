package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/nodetree/internal/config"
	"github.com/roach88/nodetree/internal/kvstore"
	"github.com/roach88/nodetree/internal/memstore"
	"github.com/roach88/nodetree/internal/service"
	"github.com/roach88/nodetree/internal/store"
	"github.com/roach88/nodetree/internal/tree"
)

// openBackend opens the configured storage backend. The returned func
// closes it.
func openBackend(cfg config.StorageConfig, logger *slog.Logger) (tree.Backend, func() error, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		st, err := store.OpenWithOptions(cfg.Path, store.Options{Driver: cfg.Driver})
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case config.BackendBadger:
		kcfg := kvstore.DefaultConfig(cfg.Path)
		kcfg.Logger = logger
		kv, err := kvstore.Open(kcfg)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	case config.BackendMemory:
		m := memstore.New()
		return m, m.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// newFormatter builds the formatter for cmd's output streams.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// withService opens the backend, runs fn against a service over it and
// closes the backend afterwards.
func withService(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, svc *service.Service, out *OutputFormatter) error) error {
	out := newFormatter(opts, cmd)
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	storage := opts.Config.Storage
	logger.Debug("opening storage", "backend", storage.Backend, "path", storage.Path)
	backend, closeBackend, err := openBackend(storage, logger)
	if err != nil {
		return out.fail(ExitCommandError, ErrCodeStorage, "failed to open storage", err)
	}
	defer func() {
		if closeErr := closeBackend(); closeErr != nil {
			logger.Error("error closing storage", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, service.New(backend, service.WithLogger(logger)), out)
}
