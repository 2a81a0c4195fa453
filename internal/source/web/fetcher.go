// Package web fetches video metadata from watch pages and transcripts from a caption API.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/at-ishikawa/lectio/internal/apperr"
	"github.com/at-ishikawa/lectio/internal/config"
	"github.com/at-ishikawa/lectio/internal/source"
)

const defaultPageBaseURL = "https://www.youtube.com"

// Fetcher implements source.Fetcher over HTTP.
type Fetcher struct {
	pages       *resty.Client
	transcripts *resty.Client
	fileCache   *FileCache
	logger      *zap.Logger
}

func NewFetcher(cfg config.WebSourceConfig, logger *zap.Logger) (*Fetcher, error) {
	if cfg.TranscriptBaseURL == "" {
		return nil, fmt.Errorf("source.web.transcript_base_url is required")
	}
	pageBaseURL := cfg.PageBaseURL
	if pageBaseURL == "" {
		pageBaseURL = defaultPageBaseURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Fetcher{
		pages:       newClient(pageBaseURL, timeout, cfg.MaxRetryAttempts),
		transcripts: newClient(cfg.TranscriptBaseURL, timeout, cfg.MaxRetryAttempts).SetHeader("X-API-Key", cfg.TranscriptAPIKey),
		fileCache:   NewFileCache(cfg.CacheDirectory),
		logger:      logger.Named("source.web"),
	}, nil
}

func newClient(baseURL string, timeout time.Duration, retries uint) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(int(retries)).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(res *resty.Response, err error) bool {
			return err != nil || res.StatusCode() == http.StatusTooManyRequests || res.StatusCode() >= http.StatusInternalServerError
		})
}

// FetchMetadata reads the watch page's Open Graph and schema.org meta tags.
func (f *Fetcher) FetchMetadata(ctx context.Context, sourceID string) (source.Metadata, error) {
	var metadata source.Metadata

	res, err := f.pages.R().
		SetContext(ctx).
		SetQueryParam("v", sourceID).
		Get("/watch")
	if err != nil {
		return metadata, acquisitionError(source.ErrMetadataUnavailable, "fetch watch page for %s: %v", sourceID, err)
	}
	if res.StatusCode() != http.StatusOK {
		return metadata, acquisitionError(source.ErrMetadataUnavailable, "fetch watch page for %s: status code %d", sourceID, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return metadata, acquisitionError(source.ErrMetadataUnavailable, "parse watch page for %s: %v", sourceID, err)
	}

	metadata.Title = strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	if metadata.Title == "" {
		metadata.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	metadata.Description = strings.TrimSpace(doc.Find(`meta[property="og:description"]`).AttrOr("content", ""))
	if duration, ok := doc.Find(`meta[itemprop="duration"]`).Attr("content"); ok {
		seconds, err := parseISODuration(duration)
		if err != nil {
			f.logger.Warn("ignoring unparsable duration", zap.String("source_id", sourceID), zap.String("duration", duration), zap.Error(err))
		}
		metadata.DurationSeconds = seconds
	}

	if metadata.Title == "" {
		return metadata, acquisitionError(source.ErrMetadataUnavailable, "watch page for %s has no title", sourceID)
	}
	return metadata, nil
}

// FetchTranscript returns the caption track for a video, reading the file cache first.
func (f *Fetcher) FetchTranscript(ctx context.Context, sourceID string) (source.Transcript, error) {
	var transcript source.Transcript

	contents, err := f.fileCache.cache(sourceID, func() ([]byte, error) {
		return f.fetchTranscriptAPI(ctx, sourceID)
	})
	if err != nil {
		return transcript, err
	}
	if err := json.Unmarshal(contents, &transcript); err != nil {
		return transcript, acquisitionError(source.ErrTranscriptUnavailable, "decode transcript for %s: %v", sourceID, err)
	}
	if len(transcript.Segments) == 0 {
		return transcript, acquisitionError(source.ErrTranscriptUnavailable, "transcript for %s has no segments", sourceID)
	}
	return transcript, nil
}

func (f *Fetcher) fetchTranscriptAPI(ctx context.Context, sourceID string) ([]byte, error) {
	res, err := f.transcripts.R().
		SetContext(ctx).
		SetPathParam("id", sourceID).
		SetHeader("Accept", "application/json").
		Get("/v1/transcripts/{id}")
	if err != nil {
		return nil, acquisitionError(source.ErrTranscriptUnavailable, "fetch transcript for %s: %v", sourceID, err)
	}

	switch res.StatusCode() {
	case http.StatusOK:
		f.logger.Debug("transcript fetched", zap.String("source_id", sourceID), zap.Int("bytes", len(res.Body())))
		return res.Body(), nil
	case http.StatusNotFound:
		return nil, acquisitionError(source.ErrTranscriptUnavailable, "no transcript for %s", sourceID)
	default:
		return nil, acquisitionError(source.ErrTranscriptUnavailable, "fetch transcript for %s: status code %d, body: %s", sourceID, res.StatusCode(), string(res.Body()))
	}
}

func acquisitionError(sentinel *apperr.Error, format string, args ...any) error {
	return apperr.New(apperr.KindAcquisition, sentinel.Code, fmt.Errorf(format, args...))
}

var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseISODuration parses the PnDTnHnMnS subset used by schema.org durations.
func parseISODuration(s string) (int, error) {
	m := isoDurationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", s)
	}

	multipliers := []int{24 * 3600, 3600, 60, 1}
	total := 0
	for i, multiplier := range multipliers {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("invalid ISO 8601 duration %q: %w", s, err)
		}
		total += n * multiplier
	}
	return total, nil
}
