package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/ontix/config"
	"github.com/teranos/ontix/db"
	"github.com/teranos/ontix/errors"
	"github.com/teranos/ontix/federation"
	"github.com/teranos/ontix/logger"
	"github.com/teranos/ontix/provider/remote"
	"github.com/teranos/ontix/provider/sqlite"
)

// loadConfig honors the --config flag, falling back to discovery.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path, _ = cmd.Root().PersistentFlags().GetString("config")
	}
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// openBackend constructs one provider from its configuration. The
// returned closer releases the underlying connection, if any.
func openBackend(bc config.BackendConfig) (federation.Backend, func() error, error) {
	switch bc.Kind {
	case config.KindSQLite:
		database, err := db.Open(bc.Path, logger.Logger)
		if err != nil {
			return federation.Backend{}, nil, errors.Wrapf(err, "opening sqlite backend %q", bc.Name)
		}
		if err := db.Migrate(database, logger.Logger); err != nil {
			database.Close()
			return federation.Backend{}, nil, errors.Wrapf(err, "migrating sqlite backend %q", bc.Name)
		}
		return federation.Backend{
			Name:     bc.Name,
			Provider: sqlite.New(database),
		}, database.Close, nil

	case config.KindRemote:
		p, err := remote.New(bc.URL, remote.Options{
			AllowPrivate:      bc.AllowPrivate,
			RequestsPerSecond: bc.RequestsPerSecond,
		})
		if err != nil {
			return federation.Backend{}, nil, errors.Wrapf(err, "creating remote backend %q", bc.Name)
		}
		return federation.Backend{Name: bc.Name, Provider: p}, func() error { return nil }, nil

	default:
		return federation.Backend{}, nil, errors.Wrapf(errors.ErrConfiguration, "unknown backend kind %q", bc.Kind)
	}
}

// openBackends builds every configured backend, closing already-opened
// ones on failure.
func openBackends(cfg *config.Config) ([]federation.Backend, func(), error) {
	var backends []federation.Backend
	var closers []func() error

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Logger.Warnw("Failed to close backend", "error", err)
			}
		}
	}

	for _, bc := range cfg.Federation.Backends {
		backend, closer, err := openBackend(bc)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		backends = append(backends, backend)
		closers = append(closers, closer)
	}
	return backends, closeAll, nil
}
