package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/staleserve/staleserve/internal/config"
	"github.com/staleserve/staleserve/internal/telemetry"
	"github.com/staleserve/staleserve/pkg/cache"
	"github.com/staleserve/staleserve/pkg/cache/redisstore"
	"github.com/staleserve/staleserve/pkg/cache/s3store"
	"github.com/staleserve/staleserve/pkg/cache/sqlitestore"
	"github.com/staleserve/staleserve/pkg/engine"
	"github.com/staleserve/staleserve/pkg/events"
	"github.com/staleserve/staleserve/pkg/server"
	"github.com/staleserve/staleserve/pkg/upstream"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		listen     string
		noWarmup   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the cache server",
		Long: `Start the cache server with the routes declared in the manifest.

Prerendered parameter sets are generated before the server starts
listening unless --no-warmup is given.

Examples:
  staleserve serve
  staleserve serve --config=staleserve.yaml
  staleserve serve --listen=:9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, listen, noWarmup)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "staleserve.yaml", "Path to the manifest")
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (overrides the manifest)")
	cmd.Flags().BoolVar(&noWarmup, "no-warmup", false, "Skip prerender warmup at startup")

	return cmd
}

func runServe(configPath, listen string, noWarmup bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}

	logger := slog.Default().With("component", "serve")
	ctx := context.Background()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Warn("trace flush failed", "error", err)
			}
		}()
	}

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	origin, err := upstream.New(cfg.Upstream)
	if err != nil {
		return err
	}
	defs, err := cfg.RouteDefs(origin.Render)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	engCfg := &engine.Config{
		Store:             store,
		Metrics:           engine.NewMetrics(engine.WithRegistry(registry)),
		BlockTimeout:      cfg.Engine.BlockTimeout,
		BackgroundTimeout: cfg.Engine.BackgroundTimeout,
	}
	if cfg.Telemetry.Enabled {
		engCfg.Tracing = engine.NewTracing()
	}

	var broadcaster *events.Broadcaster
	if cfg.Events.Enabled {
		broadcaster = events.NewBroadcaster()
		engCfg.Events = broadcaster
	}

	eng, err := engine.New(defs, engCfg)
	if err != nil {
		return err
	}

	if !noWarmup {
		logger.Info("warming up prerendered routes")
		if err := eng.Warmup(ctx); err != nil {
			return fmt.Errorf("warmup: %w", err)
		}
	}

	srv := server.New(eng, broadcaster, &server.Config{
		Address:  cfg.Listen,
		Registry: registry,
	})
	return srv.Run()
}

// openStore builds the persistent artifact store declared in the
// manifest, or returns nil when persistence is disabled.
func openStore(ctx context.Context, sc config.StoreConfig) (cache.Store, error) {
	switch sc.Type {
	case "", "none":
		return nil, nil

	case "sqlite":
		return sqlitestore.Open(sc.Path)

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     sc.Addr,
			Password: sc.Password,
			DB:       sc.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return redisstore.New(client), nil

	case "s3":
		client := s3.NewFromConfig(aws.Config{
			Region:      sc.Region,
			Credentials: envCredentials(),
		})
		return s3store.New(client, sc.Bucket, ""), nil

	default:
		return nil, fmt.Errorf("unknown store type %q", sc.Type)
	}
}

// envCredentials reads AWS credentials from the standard environment
// variables.
func envCredentials() aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		key := os.Getenv("AWS_ACCESS_KEY_ID")
		secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
		if key == "" || secret == "" {
			return aws.Credentials{}, fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set for the s3 store")
		}
		return aws.Credentials{
			AccessKeyID:     key,
			SecretAccessKey: secret,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "environment",
		}, nil
	})
}
