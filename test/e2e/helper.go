package e2e

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/asakaida/tollgate/internal/handlers"
	"github.com/asakaida/tollgate/internal/infrastructure/cache/plancache"
	"github.com/asakaida/tollgate/internal/infrastructure/config"
	"github.com/asakaida/tollgate/internal/infrastructure/database"
	"github.com/asakaida/tollgate/internal/repositories/postgres"
	"github.com/asakaida/tollgate/internal/services"
	"github.com/asakaida/tollgate/internal/services/access"
)

// E2ETestServer runs the full HTTP API in-process over a real database.
type E2ETestServer struct {
	Server *httptest.Server
	DB     *sql.DB
}

// SetupE2ETest sets up an E2E test environment
func SetupE2ETest(t *testing.T) *E2ETestServer {
	t.Helper()

	// Initialize config for test environment
	config.InitConfig("test")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Connect to test database
	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations (use absolute path)
	projectRoot, err := findProjectRoot()
	if err != nil {
		t.Fatalf("failed to find project root: %v", err)
	}
	migrationsPath := filepath.Join(projectRoot, "internal/infrastructure/database/migrations/postgres")
	if err := pg.RunMigrations(migrationsPath); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	cleanTables(t, pg.DB)

	planCache := plancache.New(&plancache.Config{
		MaxEntries:    64,
		TTL:           time.Minute,
		EnableMetrics: true,
	})

	planRepo := postgres.NewPostgresPlanRepository(pg.DB)
	subscriptionRepo := postgres.NewPostgresSubscriptionRepository(pg.DB)
	permissionRepo := postgres.NewPostgresPermissionRepository(pg.DB)

	router := handlers.NewRouter(&handlers.RouterConfig{
		Catalog:   services.NewCatalogServiceWithCache(planRepo, planCache),
		Ledger:    services.NewLedgerService(subscriptionRepo, planRepo),
		Registry:  services.NewRegistryService(permissionRepo),
		Evaluator: access.NewEvaluatorWithCache(subscriptionRepo, planRepo, planCache),
		Health:    pg,
	})

	return &E2ETestServer{
		Server: httptest.NewServer(router),
		DB:     pg.DB,
	}
}

// Teardown stops the server and cleans up test data
func (s *E2ETestServer) Teardown(t *testing.T) {
	t.Helper()
	s.Server.Close()
	cleanTables(t, s.DB)
	if err := s.DB.Close(); err != nil {
		t.Logf("warning: failed to close database: %v", err)
	}
}

// Do performs an HTTP request against the test server and decodes the JSON
// body. The caller owns status code assertions.
func (s *E2ETestServer) Do(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.Server.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	var decoded map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("failed to decode response %q: %v", raw, err)
		}
	}
	return resp.StatusCode, decoded
}

func cleanTables(t *testing.T, db *sql.DB) {
	t.Helper()
	// Children before parents
	for _, table := range []string{"subscriptions", "plans", "permissions"} {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("warning: failed to clean up table %s: %v", table, err)
		}
	}
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}
