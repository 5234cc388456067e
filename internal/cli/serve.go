package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/ethoimager/internal/api"
	"github.com/kdimtricp/ethoimager/internal/app"
)

const shutdownTimeout = 10 * time.Second

func NewServeCmd(deps *Dependencies) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the frame API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = deps.App.Config.Server.Addr()
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}

			server := &http.Server{
				Handler:      api.NewRouter(NewAPI(deps.App)),
				ReadTimeout:  deps.App.Config.Server.ReadTimeout,
				WriteTimeout: deps.App.Config.Server.WriteTimeout,
			}

			return serve(cmd.Context(), server, ln, deps.App.Logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}

// NewAPI exposes a's per-archive pipelines to the HTTP handlers.
func NewAPI(a *app.App) *api.App {
	return &api.App{
		Open: func(ctx context.Context, path string) (api.FrameService, error) {
			return a.Open(ctx, path)
		},
		ArchiveRoot: a.Config.Server.ArchiveRoot,
		Metrics:     a.Metrics,
		Logger:      a.Logger,
	}
}

// serve runs server on ln until ctx is canceled, then shuts it down.
func serve(ctx context.Context, server *http.Server, ln net.Listener, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", ln.Addr().String())
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
