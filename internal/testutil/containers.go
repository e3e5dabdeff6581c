// Package testutil starts the containers used by integration and e2e tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	pgvectorImage = "pgvector/pgvector:0.8.1-pg18"
	rustfsImage   = "rustfs/rustfs:latest"

	pgCredential = "talentlens"

	// RustFSAccessKey and RustFSSecretKey are the static credentials the
	// RustFS container is started with.
	RustFSAccessKey = "rustfsadmin"
	RustFSSecretKey = "rustfsadmin"
)

// tablesInTruncateOrder lists every table created by migrations/.
var tablesInTruncateOrder = []string{"resume_chunks", "audit_logs"}

// PostgresContainer is a running pgvector-enabled Postgres.
type PostgresContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

// RustFSContainer is a running S3-compatible RustFS server.
type RustFSContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

// startContainer runs req and resolves the host mapping of port.
func startContainer(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest, port string) (testcontainers.Container, string, string) {
	t.Helper()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start %s: %v", req.Image, err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = testcontainers.TerminateContainer(c)
		t.Fatalf("resolve host for %s: %v", req.Image, err)
	}
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	if err != nil {
		_ = testcontainers.TerminateContainer(c)
		t.Fatalf("resolve port %s for %s: %v", port, req.Image, err)
	}
	return c, host, mapped.Port()
}

// NewPostgresContainer starts Postgres with the vector extension available.
func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	t.Helper()

	c, host, port := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        pgvectorImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pgCredential,
			"POSTGRES_PASSWORD": pgCredential,
			"POSTGRES_DB":       pgCredential,
		},
		// The entrypoint restarts the server once after init.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(time.Minute),
	}, "5432/tcp")

	return &PostgresContainer{Container: c, Host: host, Port: port}
}

// ConnectionString is a pgx DSN for the container's database.
func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%[1]s:%[1]s@%s:%s/%[1]s?sslmode=disable", pgCredential, pc.Host, pc.Port)
}

func (pc *PostgresContainer) Terminate(context.Context) error {
	return testcontainers.TerminateContainer(pc.Container)
}

// NewRustFSContainer starts RustFS with RustFSAccessKey/RustFSSecretKey.
func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	t.Helper()

	c, host, port := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        rustfsImage,
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": RustFSAccessKey,
			"RUSTFS_SECRET_KEY": RustFSSecretKey,
		},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(30 * time.Second),
	}, "9000/tcp")

	return &RustFSContainer{Container: c, Host: host, Port: port}
}

// Endpoint is the base URL to hand to the S3 client.
func (rc *RustFSContainer) Endpoint() string {
	return "http://" + rc.Host + ":" + rc.Port
}

func (rc *RustFSContainer) Terminate(context.Context) error {
	return testcontainers.TerminateContainer(rc.Container)
}

// NewTestPool connects to pc, waiting up to ten seconds for the server to
// accept queries, then applies every up migration in migrationsDir. The pool
// is closed when the test ends.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(ctx, pc.ConnectionString())
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	deadline := time.Now().Add(10 * time.Second)
	for {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("postgres never became ready: %v", err)
		}
		time.Sleep(250 * time.Millisecond)
	}

	if err := RunMigrations(ctx, pool, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return pool
}

// RunMigrations executes the *.up.sql files of migrationsDir in version
// order. It does not track versions; use it only on a fresh database.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no up migrations in %s", migrationsDir)
	}
	sort.Strings(files)

	for _, path := range files {
		sql, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

// TruncateAll empties every application table in one statement.
func TruncateAll(ctx context.Context, pool *pgxpool.Pool) error {
	stmt := "TRUNCATE TABLE " + strings.Join(tablesInTruncateOrder, ", ")
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	return nil
}
