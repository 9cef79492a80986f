package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/IlliniBlockchain/agora-courts/config"
	"github.com/IlliniBlockchain/agora-courts/core"
	"github.com/IlliniBlockchain/agora-courts/core/genesis"
	"github.com/IlliniBlockchain/agora-courts/observability/logging"
	telemetry "github.com/IlliniBlockchain/agora-courts/observability/otel"
	"github.com/IlliniBlockchain/agora-courts/rpc"
	"github.com/IlliniBlockchain/agora-courts/storage"
)

const shutdownTimeout = 10 * time.Second

var zeroRoot = strings.Repeat("0", 64)

func main() {
	var cfgPath, genesisOverride string
	flag.StringVar(&cfgPath, "config", "./courtd.toml", "path to node configuration")
	flag.StringVar(&genesisOverride, "genesis", "", "override the genesis file from the configuration")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if genesisOverride != "" {
		cfg.GenesisFile = genesisOverride
	}
	if env := strings.TrimSpace(os.Getenv("AGORA_ENV")); env != "" {
		cfg.Environment = env
	}

	logger, closer := logging.Setup("courtd", cfg.Environment, logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("courtd exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	headers := telemetry.ParseHeaders(cfg.Telemetry.Headers)
	if raw := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); raw != "" {
		headers = telemetry.ParseHeaders(raw)
	}
	endpoint := cfg.Telemetry.Endpoint
	if raw := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); raw != "" {
		endpoint = raw
	}
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "courtd",
		Environment: cfg.Environment,
		Endpoint:    endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     headers,
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("initialise telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTelemetry(shutdownCtx)
	}()

	db, err := storage.Open(cfg.DBBackend, databasePath(cfg))
	if err != nil {
		return fmt.Errorf("open %s database: %w", cfg.DBBackend, err)
	}
	node, err := core.NewNode(db, core.WithLogger(logger.With("component", "node")))
	if err != nil {
		db.Close()
		return fmt.Errorf("init node: %w", err)
	}
	defer node.Close()

	if err := applyGenesis(ctx, cfg, node, logger); err != nil {
		return err
	}

	api := rpc.NewServer(node, rpc.ServerConfig{
		RequestsPerMinute: cfg.RPC.RequestsPerMinute,
		Burst:             cfg.RPC.Burst,
		MaxBodyBytes:      cfg.RPC.MaxBodyBytes,
	}, logger.With("component", "rpc"))
	servers := []*http.Server{{
		Addr:              cfg.RPCAddress,
		Handler:           api.Handler(),
		ReadHeaderTimeout: seconds(cfg.RPC.ReadHeaderTimeout),
		ReadTimeout:       seconds(cfg.RPC.ReadTimeout),
		WriteTimeout:      seconds(cfg.RPC.WriteTimeout),
		IdleTimeout:       seconds(cfg.RPC.IdleTimeout),
	}}
	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		servers = append(servers, &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: seconds(cfg.RPC.ReadHeaderTimeout),
		})
	}

	listeners := make([]net.Listener, 0, len(servers))
	for _, srv := range servers {
		listener, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, l := range listeners {
				l.Close()
			}
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		listeners = append(listeners, listener)
	}

	group, gctx := errgroup.WithContext(ctx)
	for i, srv := range servers {
		srv, listener := srv, listeners[i]
		logger.Info("listening", "addr", listener.Addr().String())
		group.Go(func() error {
			if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var shutdownErr error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil && shutdownErr == nil {
				shutdownErr = err
			}
		}
		logger.Info("servers stopped", "root", node.StateRoot())
		return shutdownErr
	})
	return group.Wait()
}

func databasePath(cfg *config.Config) string {
	switch cfg.DBBackend {
	case storage.BackendBolt:
		return filepath.Join(cfg.DataDir, "state.db")
	default:
		return filepath.Join(cfg.DataDir, "state")
	}
}

// applyGenesis seeds a fresh node. A node with committed state ignores the
// genesis file.
func applyGenesis(ctx context.Context, cfg *config.Config, node *core.Node, logger *slog.Logger) error {
	if strings.TrimSpace(cfg.GenesisFile) == "" {
		return nil
	}
	if root := node.StateRoot(); root != zeroRoot {
		logger.Info("existing state found, skipping genesis", "root", root)
		return nil
	}
	spec, err := genesis.LoadGenesisSpec(cfg.GenesisFile)
	if err != nil {
		return err
	}
	if err := genesis.Apply(ctx, spec, node); err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	logger.Info("genesis applied",
		"tokens", len(spec.Tokens),
		"courts", len(spec.Courts),
		"root", node.StateRoot())
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
