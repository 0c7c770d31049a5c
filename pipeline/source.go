package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// DefaultArtifactPath is where the artifact is looked up when no path is configured.
const DefaultArtifactPath = "models/pipeline.yaml"

// Source supplies the serialized artifact.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
	String() string
}

// FileSource reads the artifact from disk. Relative paths are resolved next to
// the executable first, then against the working directory.
type FileSource struct {
	Path string
}

func (s FileSource) String() string { return "file " + s.path() }

func (s FileSource) Load(ctx context.Context) ([]byte, error) {
	path, err := ResolvePath(s.path())
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, nil
}

func (s FileSource) path() string {
	if s.Path == "" {
		return DefaultArtifactPath
	}
	return s.Path
}

// ResolvePath locates a relative artifact path beside the running program,
// falling back to the working directory.
func ResolvePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("artifact not found: %w", err)
		}
		return path, nil
	}

	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("artifact not found: %w", err)
	}
	return filepath.Abs(path)
}

// PostgresSource reads the active artifact from the pipeline_artifacts table.
type PostgresSource struct {
	db *sql.DB
}

// NewPostgresSource creates a PostgreSQL-backed artifact source.
func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) String() string { return "postgres pipeline_artifacts" }

// Load returns the document of the most recently published active artifact.
func (s *PostgresSource) Load(ctx context.Context) ([]byte, error) {
	var document []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT document
		FROM pipeline_artifacts
		WHERE active = true
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&document)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no active artifact published")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active artifact: %w", err)
	}
	return document, nil
}

// ArtifactRecord describes a published artifact row.
type ArtifactRecord struct {
	ID            string
	Name          string
	FormatVersion int
	Active        bool
	CreatedAt     time.Time
}

// Publish validates document and stores it as the only active artifact.
func (s *PostgresSource) Publish(ctx context.Context, document []byte) (*ArtifactRecord, error) {
	a, err := ParseArtifact(document)
	if err != nil {
		return nil, fmt.Errorf("refusing to publish invalid artifact: %w", err)
	}
	if _, err := Compile(a); err != nil {
		return nil, fmt.Errorf("refusing to publish invalid artifact: %w", err)
	}

	rec := &ArtifactRecord{
		ID:            uuid.NewString(),
		Name:          a.Name,
		FormatVersion: a.FormatVersion,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE pipeline_artifacts SET active = false WHERE active = true
	`); err != nil {
		return nil, fmt.Errorf("failed to deactivate artifacts: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pipeline_artifacts (id, name, format_version, document, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.Name, rec.FormatVersion, document, rec.Active, rec.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert artifact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit artifact: %w", err)
	}
	return rec, nil
}

// List returns every published artifact, newest first.
func (s *PostgresSource) List(ctx context.Context) ([]*ArtifactRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, format_version, active, created_at
		FROM pipeline_artifacts
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var records []*ArtifactRecord
	for rows.Next() {
		var r ArtifactRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.FormatVersion, &r.Active, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artifacts: %w", err)
	}
	return records, nil
}
