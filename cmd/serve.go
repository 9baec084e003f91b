// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"recordgate/cli/internal/gateway"
	"recordgate/cli/internal/logging"
	"recordgate/cli/internal/rpc"
)

var (
	serveListen  string
	serveMetrics string
	serveToken   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local record store over gRPC",
	Long: `Serve exposes the local PostgreSQL or SQLite record store as a recordgate gRPC
service, so other recordgate clients can use it with --addr. With --metrics,
Prometheus metrics are served over HTTP at /metrics. Logs are JSON.

A bearer token (--token or RECORDGATE_TOKEN) makes every call require
"authorization: Bearer <token>".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.Configure(logging.Options{Level: settings.LogLevel, JSON: true, Writer: cmd.ErrOrStderr()})

		listen := settings.Server.Listen
		if cmd.Flags().Changed("listen") {
			listen = serveListen
		}
		metricsAddr := settings.Server.MetricsAddr
		if cmd.Flags().Changed("metrics") {
			metricsAddr = serveMetrics
		}
		token := settings.Remote.Token
		if cmd.Flags().Changed("token") {
			token = serveToken
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := openEngine(ctx, settings)
		if err != nil {
			return err
		}
		defer e.Close()

		srv := rpc.NewServer(gateway.New(e, gateway.WithLogger(log)), rpc.WithToken(token), rpc.WithServerLogger(log))
		g := srv.NewGRPCServer()

		lis, err := net.Listen("tcp", listen)
		if err != nil {
			return err
		}

		errc := make(chan error, 2)
		go func() { errc <- g.Serve(lis) }()

		var metricsSrv *http.Server
		if metricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			metricsSrv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := metricsSrv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
			}()
		}

		log.WithFields(logrus.Fields{
			"listen":  lis.Addr().String(),
			"metrics": metricsAddr,
			"auth":    token != "",
		}).Info("recordgate server started")

		select {
		case <-ctx.Done():
			log.Info("shutting down")
		case err = <-errc:
			log.WithError(err).Error("server stopped")
		}

		stopped := make(chan struct{})
		go func() {
			g.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(10 * time.Second):
			g.Stop()
		}
		if metricsSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	f := serveCmd.Flags()
	f.StringVar(&serveListen, "listen", "", "gRPC listen address (default :7070)")
	f.StringVar(&serveMetrics, "metrics", "", "HTTP address for Prometheus metrics, e.g. :9090")
	f.StringVar(&serveToken, "token", "", "Require this bearer token")
}
