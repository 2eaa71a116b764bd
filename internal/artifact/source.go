package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
)

// Source produces the artifact once at start-up.
type Source interface {
	Fetch(ctx context.Context) (*Artifact, error)
	Describe() string
}

type FileSource struct {
	Path string
}

func (s FileSource) Fetch(ctx context.Context) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Load(s.Path)
}

func (s FileSource) Describe() string { return s.Path }

// Querier is the subset of pgxpool.Pool used to read artifacts.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSource reads the newest payload stored under a name in
// risk_model_artifacts.
type PostgresSource struct {
	db   Querier
	name string
}

func NewPostgresSource(db Querier, name string) *PostgresSource {
	return &PostgresSource{db: db, name: name}
}

func (s *PostgresSource) Fetch(ctx context.Context) (*Artifact, error) {
	query := `
		SELECT payload
		FROM risk_model_artifacts
		WHERE name = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var payload []byte
	if err := s.db.QueryRow(ctx, query, s.name).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, s.Describe())
		}
		return nil, fmt.Errorf("fetch artifact %q: %w", s.name, err)
	}

	a, err := Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Describe(), err)
	}
	if a.Name == "" {
		a.Name = s.name
	}
	return a, nil
}

func (s *PostgresSource) Describe() string { return "postgres:risk_model_artifacts/" + s.name }

// ResolvePath looks for name in the working directory, its parent and its
// grandparent, so the server can be started from cmd/server. Absolute paths
// and misses are returned unchanged.
func ResolvePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	startDir, err := os.Getwd()
	if err != nil {
		return name
	}

	candidates := []string{
		startDir,
		filepath.Dir(startDir),
		filepath.Dir(filepath.Dir(startDir)),
	}

	for _, dir := range candidates {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
	}

	return name
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
