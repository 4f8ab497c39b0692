package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/passbook/internal/config"
	"github.com/information-sharing-networks/passbook/internal/database"
	"github.com/information-sharing-networks/passbook/internal/logger"
	"github.com/information-sharing-networks/passbook/internal/server"
	"github.com/information-sharing-networks/passbook/internal/version"
)

//	@title			passbook-server
//	@description	passbook-server issues Apple Wallet passes and implements the PassKit web service
//	@description	that devices use to register for updates and fetch the latest version of a pass.
//	@description
//	@description	## Common Error Responses
//	@description	All endpoints may return:
//	@description	- `413` Request body exceeds size limit
//	@description	- `429` Rate limit exceeded
//	@description	- `500` Internal server error
//	@description
//	@description	Errors on the /passbook endpoints have an empty body. The reason is written to the server log.
//	@description
//	@description	## Request Limits
//	@description	All endpoints are protected by:
//	@description	- **Rate limiting**: Configurable requests per second (see env vars) - default 100 rps (set to 0 to disable)
//	@description	- **Request size limits**: Configurable (see env vars) - default 1MB
//	@description
//	@description	Check the X-Max-Request-Size response header for the configured limit.
//	@description
//	@description	## Authentication & Authorization
//	@description
//	@description	Devices authenticate with the pass authentication token embedded in the pass:
//	@description	`Authorization: ApplePass <token>`. The browser download endpoint takes the same token
//	@description	as the `authentication_token` query or form value.
//	@description
//	@description	The admin endpoints are unprotected and must not be exposed outside the deployment network.
//	@description
//	@license.name	MIT

//	@servers.url			https://passes.example.org
//	@servers.description	Production server
//	@servers.url			http://localhost:8080
//	@servers.description	Development server

//	@accept		json
//	@produce	json

//	@tag.name			Passbook
//	@tag.description	PassKit web service endpoints used by Wallet

//	@tag.name			Common
//	@tag.description	Server API endpoints (health, readiness, version)

//	@tag.name			Admin
//	@tag.description	Create and manage passes. These endpoints are unprotected.

func main() {
	cmd := &cobra.Command{
		Use:   "passbook-server",
		Short: "Apple Wallet pass web service",
		Long:  `passbook-server issues signed Wallet passes and serves the PassKit web service protocol`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	cmd.AddCommand(migrateCmd())

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewServerConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		os.Exit(1)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	appLogger.Info("Configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("PUBLIC_BASE_URL", cfg.PublicBaseURL),
		slog.String("STORE_BACKEND", cfg.StoreBackend),
		slog.Any("ORIGIN_TYPES", cfg.OriginTypes),
		slog.Any("DEVICE_LOG_SINKS", cfg.DeviceLogSinks),
		slog.Bool("ALLOW_MISSING_BARCODE", cfg.AllowMissingBarcode),
		slog.Duration("ARCHIVE_CACHE_TTL", cfg.ArchiveCacheTTL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if cfg.StoreBackend == "postgres" {
		pool, err = connect(cfg.DatabaseURL, cfg.DatabasePingTimeout, func(poolConfig *pgxpool.Config) {
			poolConfig.MaxConns = cfg.DBMaxConnections
			poolConfig.MinConns = cfg.DBMinConnections
			poolConfig.MaxConnLifetime = cfg.DBMaxConnLifetime
			poolConfig.MaxConnIdleTime = cfg.DBMaxConnIdleTime
			poolConfig.ConnConfig.ConnectTimeout = cfg.DBConnectTimeout
		})
		if err != nil {
			appLogger.Error("Unable to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		appLogger.Info("connected to PostgreSQL")

		if cfg.RunMigrations {
			if err := database.Migrate(ctx, pool, appLogger); err != nil {
				appLogger.Error("Failed to run migrations", slog.String("error", err.Error()))
				os.Exit(1)
			}
		}
	}

	appLogger.Info("Starting server", slog.String("version", version.Get().Version))

	// configure the server
	server, err := server.NewServer(ctx, pool, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to create server", slog.String("error", err.Error()))
		if pool != nil {
			pool.Close()
		}
		os.Exit(1)
	}

	defer server.DatabaseShutdown()

	// start the server
	if err := server.Start(ctx); err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long:  `Applies the embedded schema migrations to DATABASE_URL. Use --status to list migrations without applying them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewMigrateConfig()
			if err != nil {
				return err
			}
			appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

			pool, err := connect(cfg.DatabaseURL, cfg.DatabasePingTimeout, nil)
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx := cmd.Context()
			if !status {
				return database.Migrate(ctx, pool, appLogger)
			}

			migrations, err := database.MigrationStatus(ctx, pool)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tSOURCE")
			for _, m := range migrations {
				appliedAt := "-"
				if !m.AppliedAt.IsZero() {
					appliedAt = m.AppliedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", m.Source.Version, m.State, appliedAt, m.Source.Path)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "list migrations and their state without applying them")
	return cmd
}

// connect opens a pgx pool and checks the database is reachable
func connect(databaseURL string, pingTimeout time.Duration, configure func(*pgxpool.Config)) (*pgxpool.Pool, error) {
	dbCtx, dbCancel := context.WithTimeout(context.Background(), pingTimeout)
	defer dbCancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if configure != nil {
		configure(poolConfig)
	}

	pool, err := pgxpool.NewWithConfig(dbCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err = pool.Ping(dbCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database via pool: %w", err)
	}
	return pool, nil
}
