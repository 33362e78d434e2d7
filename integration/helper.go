package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	reposql "github.com/iyhunko/product-catalog/internal/repository/sql"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

const (
	pgUser     = "testuser"
	pgPassword = "secret"
	pgDatabase = "catalog"
)

// TestDB is a migrated PostgreSQL instance running in a throwaway container.
type TestDB struct {
	DB   *sql.DB
	Host string
	Port string
}

// SetupTestDB starts PostgreSQL with dockertest and applies the embedded migrations.
// Tests are skipped unless INTEGRATION_TESTS is set. The container is purged when the test ends.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run tests against a PostgreSQL container")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("Could not connect to docker: %s", err)
	}
	pool.MaxWait = 120 * time.Second

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_PASSWORD=" + pgPassword,
			"POSTGRES_USER=" + pgUser,
			"POSTGRES_DB=" + pgDatabase,
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("Could not start postgres: %s", err)
	}
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Errorf("Could not purge postgres: %s", err)
		}
	})
	// orphaned containers die on their own
	if err := resource.Expire(180); err != nil {
		t.Fatalf("Could not set expiration: %s", err)
	}

	host, port, err := net.SplitHostPort(resource.GetHostPort("5432/tcp"))
	if err != nil {
		t.Fatalf("Could not resolve postgres address: %s", err)
	}
	tdb := &TestDB{Host: host, Port: port}
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", pgUser, pgPassword, tdb.Host, tdb.Port, pgDatabase)
	t.Logf("connecting to %s:%s", tdb.Host, tdb.Port)

	if err := pool.Retry(func() error {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return err
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return err
		}
		tdb.DB = db
		return nil
	}); err != nil {
		t.Fatalf("Postgres never became ready: %s", err)
	}
	t.Cleanup(func() { _ = tdb.DB.Close() })

	if err := reposql.RunMigrations(tdb.DB); err != nil {
		t.Fatalf("Could not run migrations: %s", err)
	}
	return tdb
}

// TruncateProducts empties the products table.
func (tdb *TestDB) TruncateProducts(t *testing.T) {
	t.Helper()

	if _, err := tdb.DB.ExecContext(context.Background(), "TRUNCATE TABLE products"); err != nil {
		t.Fatalf("Could not truncate products: %s", err)
	}
}

// InsertRawID stores a row with a hand-picked id, bypassing the generator.
func (tdb *TestDB) InsertRawID(t *testing.T, id string, createdAt time.Time) {
	t.Helper()

	_, err := tdb.DB.ExecContext(context.Background(),
		`INSERT INTO products (id, name, price, min_order_qty, created_at, updated_at) VALUES ($1, $2, 1, '1', $3, $3)`,
		id, "seed "+id, createdAt)
	if err != nil {
		t.Fatalf("Could not insert %s: %s", id, err)
	}
}
