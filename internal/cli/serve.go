package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ChuLiYu/flight-server/internal/admin"
	"github.com/ChuLiYu/flight-server/internal/config"
	"github.com/ChuLiYu/flight-server/internal/metrics"
	"github.com/ChuLiYu/flight-server/internal/server"
)

func buildServeCommand(opts *rootOptions) *cobra.Command {
	var host string
	var port int
	var threads int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the flight TCP server",
		Long:  "Accept TCP clients and handle every connection on the worker pool until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configFile, cmd, host, port, threads)
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg).With("instance", uuid.NewString())
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger, nil)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "address to bind")
	cmd.Flags().IntVarP(&port, "port", "p", 5000, "TCP port to listen on")
	cmd.Flags().IntVarP(&threads, "threads", "t", 4, "number of worker threads")

	return cmd
}

// endpoints are the addresses serve actually bound.
type endpoints struct {
	TCP     net.Addr
	Metrics net.Addr // nil when disabled
	Admin   net.Addr // nil when disabled
}

// serve binds every enabled listener, reports them to ready and runs until
// ctx is cancelled or one component fails.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, ready func(endpoints)) error {
	var ep endpoints

	l, err := server.Listen(cfg.Addr())
	if err != nil {
		return err
	}
	ep.TCP = l.Addr()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	srv, err := server.New(server.Config{
		Addr:            cfg.Addr(),
		Workers:         cfg.Pool.Threads,
		QueueCapacity:   cfg.Pool.QueueCapacity,
		Overflow:        cfg.OverflowPolicy(),
		GreetOnConnect:  cfg.Server.GreetOnConnect,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, server.LogHandler(logger),
		server.WithLogger(logger),
		server.WithObserver(collector),
	)
	if err != nil {
		l.Close()
		return err
	}
	collector.WatchPool(srv.Pool())

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		ml, err := net.Listen("tcp", sideAddr(cfg, cfg.Metrics.Port))
		if err != nil {
			l.Close()
			srv.Pool().Shutdown()
			return fmt.Errorf("failed to bind metrics port: %w", err)
		}
		ep.Metrics = ml.Addr()

		hs := metrics.NewServer(ml.Addr().String(), reg)
		g.Go(func() error {
			logger.Info("metrics server listening", "addr", ml.Addr().String())
			if err := hs.Serve(ml); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		})
	}

	if cfg.Admin.Enabled {
		al, err := net.Listen("tcp", sideAddr(cfg, cfg.Admin.Port))
		if err != nil {
			l.Close()
			srv.Pool().Shutdown()
			return fmt.Errorf("failed to bind admin port: %w", err)
		}
		ep.Admin = al.Addr()

		adm := admin.NewServer(logger)
		adm.SetServing(true)
		g.Go(func() error {
			return adm.Serve(al)
		})
		g.Go(func() error {
			<-gctx.Done()
			adm.SetServing(false)
			adm.Stop()
			return nil
		})
	}

	g.Go(func() error {
		return srv.Serve(gctx, l)
	})

	if ready != nil {
		ready(ep)
	}

	err = g.Wait()
	logger.Info("server stopped")
	return err
}

// sideAddr places a side port on the same host as the TCP server.
func sideAddr(cfg *config.Config, port int) string {
	return net.JoinHostPort(cfg.Server.Host, strconv.Itoa(port))
}
