package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dental/dental/internal/domain/patient"
	"github.com/dental/dental/internal/domain/reference"
	"github.com/dental/dental/internal/platform/db"
)

// DatabaseURLEnv selects the server the suite runs against. The special value
// "docker" starts a disposable container; unset skips the suite.
const DatabaseURLEnv = "DENTAL_TEST_DATABASE_URL"

var connStr string

func TestMain(m *testing.M) {
	url := os.Getenv(DatabaseURLEnv)
	if url == "" {
		fmt.Fprintf(os.Stderr, "skipping PostgreSQL integration tests: %s not set\n", DatabaseURLEnv)
		os.Exit(0)
	}

	cleanup := func() {}
	if url == "docker" {
		var err error
		url, cleanup, err = startPostgresContainer(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
			os.Exit(1)
		}
	}
	connStr = url

	code := m.Run()
	cleanup()
	os.Exit(code)
}

// findMigrationsDir locates the migrations directory relative to this file.
func findMigrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

func findSeedFile() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "seed", "reference.yaml")
}

// newSchemaPool migrates a fresh schema, seeds reference data into it and
// returns a pool whose connections use it as search_path. The schema is
// dropped when the test ends.
func newSchemaPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()
	schema := "it_" + uuid.NewString()[:8]

	admin, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := db.NewMigrator(admin, findMigrationsDir(), schema).Up(ctx); err != nil {
		admin.Close()
		t.Fatalf("migrate schema %s: %v", schema, err)
	}

	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		admin.Close()
		t.Fatalf("parse config: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		admin.Close()
		t.Fatalf("connect to schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if _, err := admin.Exec(ctx, "DROP SCHEMA IF EXISTS "+pgx.Identifier{schema}.Sanitize()+" CASCADE"); err != nil {
			t.Logf("warning: failed to drop schema %s: %v", schema, err)
		}
		admin.Close()
	})

	ds, err := reference.LoadFile(findSeedFile())
	if err != nil {
		t.Fatalf("load reference data: %v", err)
	}
	if err := reference.Seed(ctx, db.NewTransactor(pool), reference.NewRepoPG(pool), ds); err != nil {
		t.Fatalf("seed reference data: %v", err)
	}
	return pool
}

func createPatient(t *testing.T, pool *pgxpool.Pool, first, last string) *patient.Patient {
	t.Helper()
	p := &patient.Patient{FirstName: first, LastName: last}
	if err := patient.NewService(patient.NewRepoPG(pool)).Save(context.Background(), p); err != nil {
		t.Fatalf("create patient: %v", err)
	}
	return p
}
