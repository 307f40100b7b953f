package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"vepbot/internal/auth"
	"vepbot/internal/db"
	httpx "vepbot/internal/http"
)

func serveCmd() *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the operator API and the polling scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := db.AutoMigrateAndIndexes(a.db); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			worker, err := a.newWorker(ctx)
			if err != nil {
				return err
			}

			jwtSvc := auth.NewJWT(a.cfg.JWTSecret, a.cfg.TokenTTL)
			srv := &http.Server{
				Addr:              a.cfg.HTTPAddr,
				Handler:           httpx.NewRouter(a.cfg, a.db, jwtSvc, worker, a.log.Named("http")),
				ReadHeaderTimeout: 5 * time.Second,
			}

			done := make(chan struct{})
			if !noScheduler {
				go func() {
					defer close(done)
					worker.Run(ctx)
				}()
			} else {
				close(done)
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Infow("listening", "addr", a.cfg.HTTPAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				stop()
				<-done
				return errors.Wrap(err, "http server")
			}

			a.log.Infow("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
			<-done
			return nil
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve the API without polling for jobs")
	return cmd
}
