package postgres

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/NikolayKlyatishev/vector-view/pkg/storage"
)

func init() {
	// Configure testcontainers to use podman when it is the local runtime.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a connected Store.
// Tests are skipped if no container runtime is available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}
	if testing.Short() {
		t.Skip("short mode, skipping PostgreSQL integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("vector_view_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container: %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       2,
		MinConns:       1,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestPostgres_SaveAndLoad(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	body := `{"connections": {}, "active_connection_id": null}`
	if err := store.Save(ctx, storage.DocConnections, []byte(body)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx, storage.DocConnections)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// JSONB normalizes whitespace, so compare the keys instead of bytes.
	if !strings.Contains(string(got), `"connections"`) || !strings.Contains(string(got), `"active_connection_id"`) {
		t.Errorf("Load = %s, want both keys", got)
	}
}

func TestPostgres_SaveReplaces(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_ = store.Save(ctx, storage.DocPreferences, []byte(`{"theme":"light"}`))
	if err := store.Save(ctx, storage.DocPreferences, []byte(`{"theme":"dark"}`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx, storage.DocPreferences)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !strings.Contains(string(got), "dark") {
		t.Errorf("Load = %s, want the second body", got)
	}
}

func TestPostgres_LoadNotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.Load(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Load error = %v, want ErrNotFound", err)
	}
}

func TestPostgres_MigrateTwice(t *testing.T) {
	store := setupTestDB(t)

	if err := store.migrate(context.Background()); err != nil {
		t.Errorf("second migrate failed: %v", err)
	}
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}

func TestPendingMigrationsOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_later.sql":  {Data: []byte("SELECT 1")},
		"migrations/002_second.sql": {Data: []byte("SELECT 1")},
		"migrations/001_first.sql":  {Data: []byte("SELECT 1")},
		"migrations/README.md":      {Data: []byte("notes")},
		"migrations/bad.sql":        {Data: []byte("SELECT 1")},
	}

	got, err := pendingMigrations(fsys)
	if err != nil {
		t.Fatalf("pendingMigrations failed: %v", err)
	}
	want := []int{1, 2, 10}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, m := range got {
		if m.version != want[i] {
			t.Errorf("got[%d].version = %d, want %d", i, m.version, want[i])
		}
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	got, err := pendingMigrations(migrationFiles)
	if err != nil {
		t.Fatalf("pendingMigrations failed: %v", err)
	}
	if len(got) == 0 || got[0].file != "001_create_documents.sql" {
		t.Errorf("embedded migrations = %+v, want 001_create_documents.sql first", got)
	}
}
