package cli

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/powermarket/internal/config"
	"github.com/roach88/powermarket/internal/offchain/docstore"
	"github.com/roach88/powermarket/internal/offchain/httpstore"
)

// shutdownTimeout bounds graceful shutdown of serve-offchain.
const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve-offchain command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeOffchainCommand creates the serve-offchain command.
func NewServeOffchainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve-offchain",
		Short: "Serve the local document store over HTTP",
		Long: `Serve the SQLite document store at offchain.path over HTTP.

Documents are addressed as {collection}/{hash} and stored under
offchain.base_url, so a client configured with offchain.mode=http and
offchain.base_url pointing here reads and writes the same documents as a
local client using the same offchain.path and base_url.

Example:
  powermarket serve-offchain --addr :3030`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeOffchain(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default server.addr)")
	return cmd
}

func runServeOffchain(cmd *cobra.Command, opts *ServeOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	addr := opts.Addr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	docs, err := docstore.Open(cfg.OffChain.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open document store", err)
	}
	defer func() {
		if closeErr := docs.Close(); closeErr != nil {
			opts.Logger.Error("error closing document store", "error", closeErr)
		}
	}()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts.Logger.Info("serving documents", "addr", ln.Addr().String(), "store", cfg.OffChain.Path, "base_url", cfg.OffChain.BaseURL)
	if err := serve(ctx, ln, httpstore.NewHandler(docs, cfg.OffChain.BaseURL, opts.Logger), opts.Logger); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	opts.Logger.Info("server stopped gracefully")
	return nil
}

// serve runs handler on ln until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down", "reason", context.Cause(ctx))
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
