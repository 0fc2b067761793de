package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/ontix/config"
	"github.com/teranos/ontix/errors"
	"github.com/teranos/ontix/federation"
	"github.com/teranos/ontix/logger"
	"github.com/teranos/ontix/server"
)

// ServeCmd starts the federation server.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the federation server",
	Long: `Start the HTTP and WebSocket server over the configured backends.

Backends are declared in ontix.toml (or ~/.ontix/config.toml) and
queried according to the configured federation policy.

Examples:
  ontix serve                       # Use discovered config
  ontix serve --addr :9000          # Override the listen address
  ontix serve -c ./staging.toml     # Use a specific config file`,
	RunE: runServe,
}

var serveAddrFlag string

func init() {
	ServeCmd.Flags().StringVar(&serveAddrFlag, "addr", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	backends, closeBackends, err := openBackends(cfg)
	if err != nil {
		return err
	}
	defer closeBackends()

	composite, err := federation.New(backends, federation.Options{
		Policy: federation.Policy(cfg.Federation.Policy),
		Logger: logger.Logger,
	})
	if err != nil {
		return err
	}

	names := composite.Backends()

	addr := cfg.Server.Addr
	if serveAddrFlag != "" {
		addr = serveAddrFlag
	}

	srv, err := server.New(composite, server.Options{
		Addr:     addr,
		Backends: names,
		Logger:   logger.Logger,
	})
	if err != nil {
		return err
	}

	watchCtx, cancelWatch := context.WithCancel(cmd.Context())
	defer cancelWatch()
	if err := startWatchers(watchCtx, srv, cfg, names); err != nil {
		return err
	}

	verbosity, _ := cmd.Root().PersistentFlags().GetCount("verbose")
	printStartupBanner(verbosity, addr, string(composite.Policy()), names)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Logger.Infow("Shutting down", "signal", sig.String())
	}

	cancelWatch()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startWatchers wires filesystem watchers for sqlite backends with
// watch enabled, so connected renderers hear about external writes.
// names is index-aligned with cfg.Federation.Backends and carries the
// resolved (possibly synthetic) backend names.
func startWatchers(ctx context.Context, srv *server.Server, cfg *config.Config, names []string) error {
	var watcher *server.Watcher
	for i, bc := range cfg.Federation.Backends {
		if bc.Kind != config.KindSQLite || !bc.Watch {
			continue
		}
		if watcher == nil {
			var err error
			watcher, err = server.NewWatcher(srv, logger.Logger)
			if err != nil {
				return err
			}
		}
		if err := watcher.WatchBackend(names[i], bc.Path); err != nil {
			return err
		}
	}
	if watcher != nil {
		go watcher.Run(ctx)
	}
	return nil
}
