//go:build integration

package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL testcontainer and runs migrations
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	connStr := fmt.Sprintf("postgres://postgres:password@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	migrationSQL, err := os.ReadFile("../migrations/000001_pipeline_artifacts.up.sql")
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}
	if _, err := db.Exec(string(migrationSQL)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		db.Close()
		postgres.Terminate(ctx)
	}
	return db, cleanup
}

// TestPostgresSourceRoundTrip verifies a published artifact is the one loaded back
func TestPostgresSourceRoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	src := NewPostgresSource(db)

	_, err := Load(ctx, src)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr, "empty table must not load")

	document, err := os.ReadFile(artifactPath)
	require.NoError(t, err)

	first, err := src.Publish(ctx, document)
	require.NoError(t, err)

	renamed := mutatedArtifact(t, func(a *Artifact) { a.Name = "home-loan-logistic-v2" })
	second, err := src.Publish(ctx, renamed)
	require.NoError(t, err)

	p, err := Load(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "home-loan-logistic-v2", p.Name())

	records, err := src.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID)
	assert.True(t, records[0].Active)
	assert.Equal(t, first.ID, records[1].ID)
	assert.False(t, records[1].Active)

	verdict, err := NewPredictor(p).Predict(exampleApplication(t, nil))
	require.NoError(t, err)
	assert.Equal(t, Eligible, verdict)
}
