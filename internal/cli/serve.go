package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"metadata-mapper/internal/api"
	"metadata-mapper/internal/compile"
)

const shutdownTimeout = 15 * time.Second

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API for document submission, job execution and schema
induction. The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.serve(ctx)
		},
	}

	cmd.Flags().String("addr", "", "listen address")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func (a *app) serve(ctx context.Context) error {
	b, err := openBackends(a.cfg)
	if err != nil {
		return err
	}
	defer b.close()

	srv := api.New(api.Deps{
		Store:     b.docs,
		Executor:  a.executor(b),
		Registry:  compile.DefaultRegistry(),
		MaxFanOut: a.cfg.Executor.MaxFanOut,
		Log:       a.log,
	})

	errCh := make(chan error, 1)

	go func() {
		a.log.WithField("addr", a.cfg.Server.Addr).Info("listening")
		errCh <- srv.Start(a.cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-errCh
}
