//go:build integration

package integration

// Test environment setup and server lifecycle management.
//
// The integration tests start passbook-server with a temporary database and run tests against it.
// Each test creates an empty temporary database and applies all the migrations so the schema reflects the latest code.
// The database is dropped after each test.
//
// Signing credentials are generated for each test (crypto/testutil) and pass content is served by a
// fake origin service (see originService). Device logs go to the postgres sink.
//
// By default the server logs are not included in the test output, you can enable them with:
//
//	ENABLE_SERVER_LOGS=true go test -tags=integration -v ./test/integration
//

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/information-sharing-networks/passbook/internal/config"
	"github.com/information-sharing-networks/passbook/internal/crypto/testutil"
	"github.com/information-sharing-networks/passbook/internal/database"
	"github.com/information-sharing-networks/passbook/internal/logger"
	"github.com/information-sharing-networks/passbook/internal/server"
)

// origin type served by the fake origin service
const memberOriginType = "member"

// testEnv provides access to test db and server for integration tests
type testEnv struct {
	baseURL  string
	cfg      *config.ServerEnvironment
	pool     *pgxpool.Pool
	queries  *database.Queries
	origins  *originService
	shutdown func()
}

// startInProcessServer starts passbook-server in-process for testing
func startInProcessServer(t *testing.T) *testEnv {
	t.Helper()

	testEnv := &testEnv{}

	t.Log("Starting in-process server...")

	var (
		ctx          = context.Background()
		host         = "localhost"
		port         = findFreePort(t)
		rateLimitRPS = 0
		environment  = "test"
		logLevel     = logger.ParseLogLevel("none")
		creds        = testutil.NewCredentials(t)
	)

	enableServerLogs := false
	if os.Getenv("ENABLE_SERVER_LOGS") == "true" {
		enableServerLogs = true
		logLevel = logger.ParseLogLevel("debug")
	}

	testEnv.origins = newOriginService(t)

	// configure db
	testEnv.pool = setupTestDatabase(t)
	testDatabaseURL := testEnv.pool.Config().ConnString()

	// Set environment variables before calling NewServerConfig
	testEnvVars := map[string]string{
		"HOST":           host,
		"RATE_LIMIT_RPS": fmt.Sprintf("%d", rateLimitRPS),

		"DATABASE_URL":  testDatabaseURL,
		"STORE_BACKEND": "postgres",
		"ENVIRONMENT":   environment,
		"LOG_LEVEL":     logLevel.String(),
		"PORT":          fmt.Sprintf("%d", port),

		"PUBLIC_BASE_URL":         fmt.Sprintf("http://localhost:%d", port),
		"PASS_CERTIFICATE_PATH":   creds.CertificatePath,
		"PASS_KEY_PATH":           creds.KeyPath,
		"WWDR_CERTIFICATE_PATH":   creds.WWDRDERPath,
		"ORIGIN_TYPES":            memberOriginType + "=http",
		"ORIGIN_SERVICE_BASE_URL": testEnv.origins.URL(),
		"ORIGIN_SERVICE_RETRIES":  "1",
		"DEVICE_LOG_SINKS":        "postgres",
	}

	for key, value := range testEnvVars {
		t.Setenv(key, value)
	}

	cfg, err := config.NewServerConfig()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	testEnv.queries = database.New(testEnv.pool)

	if !enableServerLogs {
		logLevel = logger.ParseLogLevel("none")
	}
	appLogger := logger.InitLogger(logLevel, "test")

	serverInstance, err := server.NewServer(ctx, testEnv.pool, cfg, appLogger)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	// Create a cancellable context for server shutdown
	serverCtx, serverCancel := context.WithCancel(ctx)

	// Start server
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := serverInstance.Start(serverCtx); err != nil {
			serverDone <- err
		}
	}()

	// Create shutdown function to be called by the test
	testEnv.shutdown = func() {
		t.Log("Stopping server...")

		// Cancel the server context to trigger graceful shutdown
		serverCancel()

		// Wait for server to shut down gracefully with timeout
		select {
		case err := <-serverDone:
			if err != nil {
				t.Logf("❌ Server shutdown with error: %v", err)
			} else {
				t.Log("✅ Server shut down gracefully")
			}
		case <-time.After(5 * time.Second):
			t.Log("⚠️ Server shutdown timeout")
		}
	}
	t.Cleanup(testEnv.shutdown)

	testEnv.baseURL = fmt.Sprintf("http://localhost:%d", port)
	t.Logf("Starting in-process server at %s", testEnv.baseURL)

	testEnv.cfg = cfg

	// Wait for server to be ready
	if !waitForServer(t, testEnv.baseURL+"/health/ready", 30*time.Second) {
		t.Fatal("Server failed to start within timeout")
	}

	t.Log("✅ Server started")
	return testEnv
}

func findFreePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	return addr.Port
}

func waitForServer(t *testing.T, url string, timeout time.Duration) bool {
	t.Helper()

	client := &http.Client{Timeout: 1 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

// Test database configuration

type databaseConfig struct {
	userAndPassword string
	dbname          string
	host            string
	port            int
}

func (d *databaseConfig) connectionURL() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=disable",
		d.userAndPassword, d.host, d.port, d.dbname)
}

func (d *databaseConfig) WithDatabase(dbname string) *databaseConfig {
	return &databaseConfig{
		userAndPassword: d.userAndPassword,
		host:            d.host,
		port:            d.port,
		dbname:          dbname,
	}
}

func localDatabaseConfig() *databaseConfig {
	return &databaseConfig{
		userAndPassword: "passbook-dev",
		dbname:          "tmp_passbook_integration_test",
		host:            "localhost",
		port:            15433,
	}
}

func ciDatabaseConfig() *databaseConfig {
	return &databaseConfig{
		userAndPassword: "postgres:postgres",
		dbname:          "tmp_passbook_integration_test",
		host:            "localhost",
		port:            5432,
	}
}

// setupTestDatabase creates an empty test db, applies migrations and returns a connection pool
// the function auto-detects if it is running in CI (github actions) and uses the appropriate database config
func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()
	config := databaseConfig{}

	if os.Getenv("GITHUB_ACTIONS") == "true" {
		config = *ciDatabaseConfig()
	} else {
		config = *localDatabaseConfig()
	}

	postgresConfig := config.WithDatabase("postgres")

	// connect to the postgres database to create the test database
	postgresConnectionURL := postgresConfig.connectionURL()

	// Note: this pool stays open until after the test database is dropped in cleanup
	postgresPoolConfig, err := pgxpool.ParseConfig(postgresConnectionURL)
	if err != nil {
		t.Fatalf("Failed to parse postgres database URL: %v", err)
	}

	postgresPool, err := pgxpool.NewWithConfig(ctx, postgresPoolConfig)
	if err != nil {
		t.Fatalf("Unable to create postgres connection pool: %v", err)
	}

	if err := postgresPool.Ping(ctx); err != nil {
		t.Fatalf("Can't ping PostgreSQL server %s", postgresConnectionURL)
	}

	_, err = postgresPool.Exec(ctx, "DROP DATABASE IF EXISTS "+config.dbname)
	if err != nil {
		t.Fatalf("DROP DATABASE IF EXISTS Failed : %v", err)
	}

	_, err = postgresPool.Exec(ctx, "CREATE DATABASE "+config.dbname)
	if err != nil {
		t.Fatalf("CREATE DATABASE Failed : %v", err)
	}

	// Close the postgres pool
	t.Cleanup(func() {
		postgresPool.Close()
	})

	// drop the test database when the test is complete (WITH (FORCE) closes connections left by the server)
	t.Cleanup(func() {
		_, err := postgresPool.Exec(ctx, "DROP DATABASE "+config.dbname+" WITH (FORCE)")
		if err != nil {
			t.Errorf("Failed to drop test database: %v", err)
		}
	})

	// connect to the new database
	testDatabasePool := setupDatabaseConn(t, config.connectionURL())

	// Apply the embedded migrations, as the server does with RUN_MIGRATIONS=true
	if err := database.Migrate(ctx, testDatabasePool, logger.InitLogger(logger.ParseLogLevel("none"), "test")); err != nil {
		t.Fatalf("Failed to apply database migrations: %v", err)
	}

	t.Logf("Database ready: %s", config.dbname)

	return testDatabasePool
}

func setupDatabaseConn(t *testing.T, databaseURL string) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		t.Fatalf("Failed to parse database URL: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("Unable to create connection pool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}
