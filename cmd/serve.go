package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/itish2003/sectionrag/controller"
)

func serveCMD() *cobra.Command {
	var addr string
	var watch bool
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP query API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}
			if cmd.Flags().Changed("watch") {
				cfg.Ingest.Watch = watch
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			pipeline, err := a.newPipeline(ctx)
			if err != nil {
				return err
			}
			if err := pipeline.Initialize(ctx); err != nil {
				return err
			}
			if err := a.titles.Invalidate(ctx); err != nil {
				a.log.Warn("section index not built", "error", err)
			}

			if cfg.Ingest.Watch {
				indexer := a.newIndexer()
				go func() {
					if _, err := indexer.ScanAndIndexDirectory(ctx, cfg.Ingest.Dir); err != nil {
						a.log.Error("initial scan failed", "error", err)
					}
					if err := indexer.WatchDirectory(ctx, cfg.Ingest.Dir); err != nil {
						a.log.Error("watcher stopped", "error", err)
					}
				}()
			}

			router := controller.NewRouter(controller.NewRAGController(pipeline, a.titles, a.log), cfg.Server.CORSOrigin, a.log)
			srv := &http.Server{Addr: cfg.Server.Address, Handler: router}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("server starting", "addr", cfg.Server.Address)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.address)")
	serve.Flags().BoolVar(&watch, "watch", false, "index ingest.dir at startup and watch it for changes")
	return serve
}
