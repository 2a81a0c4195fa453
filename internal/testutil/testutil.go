// Package testutil provides shared test helpers for config files, transcript fixtures and mocked databases.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/lectio/internal/source"
)

// SetupTestConfig creates a minimal config file reading transcripts from a local directory,
// and the directories it points at. Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir string) string {
	t.Helper()

	dirs := []string{"transcripts", "cache", "study-sheets"}
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, d), 0755))
	}

	configContent := fmt.Sprintf(`database:
  host: 127.0.0.1
  port: 3306
  database: lectio_test
  username: lectio
source:
  kind: local
  local:
    directory: %s
  web:
    cache_directory: %s
pipeline:
  workers: 1
  queue_size: 4
  min_transcript_length: 20
outputs:
  export_directory: %s
`,
		filepath.Join(tmpDir, "transcripts"),
		filepath.Join(tmpDir, "cache"),
		filepath.Join(tmpDir, "study-sheets"),
	)

	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0644))
	return cfgPath
}

// SetupTestConfigWithAPIKey creates a config file and sets a fake OpenAI API key for tests
// that require API key validation to pass.
func SetupTestConfigWithAPIKey(t *testing.T, tmpDir string) string {
	t.Helper()
	cfgPath := SetupTestConfig(t, tmpDir)
	t.Setenv("OPENAI_API_KEY", "fake-key-for-testing")
	return cfgPath
}

// TranscriptOption configures optional fields of a transcript fixture.
type TranscriptOption func(*transcriptFile)

type transcriptFile struct {
	source.Metadata   `yaml:",inline"`
	source.Transcript `yaml:",inline"`
}

// WithMetadata replaces the default title, description and duration.
func WithMetadata(metadata source.Metadata) TranscriptOption {
	return func(f *transcriptFile) {
		f.Metadata = metadata
	}
}

// WithSegments replaces the default caption segments.
func WithSegments(segments ...source.Segment) TranscriptOption {
	return func(f *transcriptFile) {
		f.Segments = segments
	}
}

// WriteTranscript writes {dir}/{sourceID}.yaml in the format the local source reads.
// By default it holds a short English talk on goroutines. Returns the file path.
func WriteTranscript(t *testing.T, dir, sourceID string, opts ...TranscriptOption) string {
	t.Helper()

	f := transcriptFile{
		Metadata: source.Metadata{
			Title:           "Go Concurrency Patterns",
			Description:     "Goroutines and channels.",
			DurationSeconds: 3067,
		},
		Transcript: source.Transcript{
			Language: "en",
			Segments: []source.Segment{
				{Start: 0, Duration: 4.5, Text: "Welcome to the talk about concurrency in Go."},
				{Start: 4.5, Duration: 6, Text: "A goroutine is a lightweight thread managed by the runtime."},
				{Start: 90, Duration: 8, Text: "Share memory by communicating."},
			},
		},
	}
	for _, opt := range opts {
		opt(&f)
	}

	data, err := yaml.Marshal(f)
	require.NoError(t, err)
	path := filepath.Join(dir, sourceID+".yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// NewMockDB returns a sqlx handle backed by sqlmock, closed when the test ends.
// Queries are matched as regular expressions.
func NewMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}
