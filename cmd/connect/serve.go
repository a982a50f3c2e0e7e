package connect

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/certusone/wormhole/connect/pkg/connect"
)

var (
	listenAddr    *string
	shutdownDelay *uint
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the adapter operations over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	listenAddr = ServeCmd.Flags().String("listenAddr", "[::]:6070", "Listen address for the API and status server")
	shutdownDelay = ServeCmd.Flags().Uint("shutdownDelay", 10, "Seconds to wait for in-flight requests on shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	logger := rt.logger

	var retriever connect.VaaRetriever
	if rt.retriever != nil {
		retriever = rt.retriever
	}
	server := NewHTTPServer(*listenAddr, logger, rt.registry, retriever)

	errC := make(chan error, 1)
	go func() {
		logger.Info("api server listening", zap.String("addr", *listenAddr), zap.Any("chains", rt.registry.Chains()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
		close(errC)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
	case err, ok := <-errC:
		if ok {
			logger.Error("api server failed", zap.Error(err))
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(*shutdownDelay)*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
