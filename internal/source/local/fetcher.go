// Package local reads transcripts and metadata from YAML files named after the source id.
//
// A file looks like:
//
//	title: Go Concurrency Patterns
//	description: Goroutines, channels and select.
//	duration_seconds: 3067
//	language: en
//	segments:
//	  - start: 0
//	    duration: 4.5
//	    text: Welcome to the talk.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/lectio/internal/apperr"
	"github.com/at-ishikawa/lectio/internal/source"
)

type file struct {
	source.Metadata   `yaml:",inline"`
	source.Transcript `yaml:",inline"`
}

// Fetcher implements source.Fetcher over a directory of YAML files.
type Fetcher struct {
	directory string
}

func NewFetcher(directory string) *Fetcher {
	return &Fetcher{directory: directory}
}

func (f *Fetcher) FetchMetadata(_ context.Context, sourceID string) (source.Metadata, error) {
	contents, err := f.load(sourceID, source.ErrMetadataUnavailable)
	if err != nil {
		return source.Metadata{}, err
	}
	if contents.Title == "" {
		return source.Metadata{}, unavailable(source.ErrMetadataUnavailable, "%s has no title", f.path(sourceID))
	}
	return contents.Metadata, nil
}

func (f *Fetcher) FetchTranscript(_ context.Context, sourceID string) (source.Transcript, error) {
	contents, err := f.load(sourceID, source.ErrTranscriptUnavailable)
	if err != nil {
		return source.Transcript{}, err
	}
	if len(contents.Segments) == 0 {
		return source.Transcript{}, unavailable(source.ErrTranscriptUnavailable, "%s has no segments", f.path(sourceID))
	}
	return contents.Transcript, nil
}

func (f *Fetcher) path(sourceID string) string {
	return filepath.Join(f.directory, sourceID+".yaml")
}

func (f *Fetcher) load(sourceID string, sentinel *apperr.Error) (*file, error) {
	data, err := os.ReadFile(f.path(sourceID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, unavailable(sentinel, "no local transcript for %s", sourceID)
		}
		return nil, unavailable(sentinel, "read %s: %v", f.path(sourceID), err)
	}

	var contents file
	if err := yaml.Unmarshal(data, &contents); err != nil {
		return nil, unavailable(sentinel, "yaml.Unmarshal(%s): %v", f.path(sourceID), err)
	}
	return &contents, nil
}

func unavailable(sentinel *apperr.Error, format string, args ...any) error {
	return apperr.New(apperr.KindAcquisition, sentinel.Code, fmt.Errorf(format, args...))
}
