// Command graphwire-notaryd serves the notary, key and payload archive
// services over gRPC.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"xdao.co/graphwire/config"
	"xdao.co/graphwire/keyservice"
	"xdao.co/graphwire/metrics"
	"xdao.co/graphwire/notary"
	"xdao.co/graphwire/storage/grpccas"
	"xdao.co/graphwire/storage/localfs"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		listen     string
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:           "graphwire-notaryd",
		Short:         "Serve the notary, key and archive services",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				if cfg, err = config.Load(configPath); err != nil {
					return err
				}
			}
			if listen != "" {
				cfg.Listen = listen
			}

			logger, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			lis, err := net.Listen("tcp", cfg.Listen)
			if err != nil {
				return err
			}
			return serve(ctx, cfg, lis, logger)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML configuration file")
	cmd.Flags().StringVar(&listen, "listen", "", "gRPC listen address (overrides the config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// serve runs until ctx is done, then stops the gRPC server gracefully.
func serve(ctx context.Context, cfg *config.Config, lis net.Listener, logger *zap.Logger) error {
	store, closeStore, err := openNotary(cfg.Notary)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	if err != nil {
		return err
	}

	srv := grpc.NewServer(grpc.UnaryInterceptor(collector.UnaryServerInterceptor()))
	notary.RegisterNotaryServer(srv, &notary.Server{Store: store, Logger: logger.Named("notary")})
	keyservice.RegisterKeyServer(srv, &keyservice.Server{
		Service: keyservice.NewMemory(cfg.KeyService.Users),
		Logger:  logger.Named("keyservice"),
	})
	services := []string{"notary", "keyservice"}
	if cfg.Archive.Dir != "" {
		cas, err := localfs.New(cfg.Archive.Dir)
		if err != nil {
			return err
		}
		grpccas.RegisterArchiveServer(srv, &grpccas.Server{CAS: cas, Logger: logger.Named("archive")})
		services = append(services, "archive")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", lis.Addr().String()),
			zap.Strings("services", services),
			zap.String("notary_driver", cfg.Notary.Driver))
		return srv.Serve(lis)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		srv.GracefulStop()
		return nil
	})
	if p, ok := store.(purger); ok && cfg.Notary.TTL > 0 {
		g.Go(func() error { return purgeLoop(ctx, p, cfg.Notary.TTL, logger) })
	}
	if cfg.MetricsListen != "" {
		ms := &http.Server{
			Addr:              cfg.MetricsListen,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := ms.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return ms.Close()
		})
	}
	return g.Wait()
}

func openNotary(cfg config.Notary) (notary.Store, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		s, err := notary.OpenSQLite(cfg.DSN, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return notary.NewMemory(cfg.TTL), func() {}, nil
	}
}

type purger interface {
	Purge(ctx context.Context) (int64, error)
}

func purgeLoop(ctx context.Context, p purger, ttl time.Duration, logger *zap.Logger) error {
	t := time.NewTicker(ttl / 4)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := p.Purge(ctx)
			if err != nil {
				logger.Warn("purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("expired deposits purged", zap.Int64("count", n))
			}
		}
	}
}
