// Package analysis turns a transcript into a validated summary and candidate concepts.
// Language understanding is delegated to an inference.Client; this package owns
// input normalization and output validation and never persists anything.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/at-ishikawa/lectio/internal/apperr"
	"github.com/at-ishikawa/lectio/internal/config"
	"github.com/at-ishikawa/lectio/internal/extract"
	"github.com/at-ishikawa/lectio/internal/inference"
	"github.com/at-ishikawa/lectio/internal/source"
)

// Reason codes of analysis failures.
const (
	CodeTranscriptTooShort = "transcript_too_short"
	CodeTimeout            = "analysis_timeout"
	CodeFailed             = "analysis_failed"
	CodeInvalidConcept     = "invalid_concept"
	CodeNoConcepts         = "no_concepts"
)

// Analysis is the validated output for one transcript.
type Analysis struct {
	Summary            string
	KeyTopics          []string
	LearningObjectives []string
	Concepts           []Concept
}

type Concept struct {
	Title      string
	Content    string
	Type       extract.Type
	StartTime  float64
	EndTime    float64
	Confidence float64
	Tags       []string
}

type Analyzer struct {
	client              inference.Client
	timeout             time.Duration
	minTranscriptLength int
	logger              *zap.Logger
}

func NewAnalyzer(client inference.Client, cfg config.PipelineConfig, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		client:              client,
		timeout:             cfg.AnalysisTimeout(),
		minTranscriptLength: cfg.MinTranscriptLength,
		logger:              logger.Named("analysis"),
	}
}

// Analyze normalizes the transcript, asks the model for concepts within the
// configured timeout and rejects the whole result if any concept is invalid.
func (a *Analyzer) Analyze(
	ctx context.Context,
	transcript source.Transcript,
	metadata source.Metadata,
	objectives []string,
) (*Analysis, error) {
	segments := normalizeSegments(transcript.Segments)
	length := 0
	for i, s := range segments {
		if i > 0 {
			length++
		}
		length += utf8.RuneCountInString(s.Text)
	}
	if length < a.minTranscriptLength {
		return nil, analysisError(CodeTranscriptTooShort, "transcript has %d characters, need at least %d", length, a.minTranscriptLength)
	}

	request := inference.ExtractConceptsRequest{
		Title:              metadata.Title,
		Description:        metadata.Description,
		LearningObjectives: objectives,
		Segments:           segments,
	}

	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	started := time.Now()
	response, err := a.client.ExtractConcepts(callCtx, request)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, analysisError(CodeTimeout, "concept extraction timed out after %s", a.timeout)
		}
		return nil, analysisError(CodeFailed, "concept extraction: %v", err)
	}
	a.logger.Debug("concepts extracted",
		zap.String("title", metadata.Title),
		zap.Int("segments", len(segments)),
		zap.Int("concepts", len(response.Concepts)),
		zap.Duration("elapsed", time.Since(started)),
	)

	return validate(response, objectives)
}

func validate(response inference.ExtractConceptsResponse, objectives []string) (*Analysis, error) {
	if len(response.Concepts) == 0 {
		return nil, analysisError(CodeNoConcepts, "analysis returned no concepts")
	}

	concepts := make([]Concept, 0, len(response.Concepts))
	for i, c := range response.Concepts {
		concept, err := validateConcept(c)
		if err != nil {
			return nil, analysisError(CodeInvalidConcept, "concept %d (%q): %v", i, c.Title, err)
		}
		concepts = append(concepts, concept)
	}

	learningObjectives := cleanList(response.LearningObjectives)
	if len(learningObjectives) == 0 {
		learningObjectives = cleanList(objectives)
	}
	return &Analysis{
		Summary:            collapseWhitespace(response.Summary),
		KeyTopics:          cleanList(response.KeyTopics),
		LearningObjectives: learningObjectives,
		Concepts:           concepts,
	}, nil
}

func validateConcept(c inference.Concept) (Concept, error) {
	typ, err := extract.ParseType(c.Type)
	if err != nil {
		return Concept{}, err
	}
	concept := Concept{
		Title:      collapseWhitespace(c.Title),
		Content:    strings.TrimSpace(c.Content),
		Type:       typ,
		StartTime:  c.StartTime,
		EndTime:    c.EndTime,
		Confidence: c.Confidence,
		Tags:       normalizeTags(c.Tags),
	}

	e := extract.Extract{
		Title:      concept.Title,
		Content:    concept.Content,
		Type:       concept.Type,
		StartTime:  concept.StartTime,
		EndTime:    concept.EndTime,
		Confidence: concept.Confidence,
	}
	if err := e.Validate(); err != nil {
		return Concept{}, err
	}
	return concept, nil
}

func normalizeSegments(segments []source.Segment) []inference.Segment {
	normalized := make([]inference.Segment, 0, len(segments))
	for _, s := range segments {
		text := collapseWhitespace(s.Text)
		if text == "" {
			continue
		}
		normalized = append(normalized, inference.Segment{Start: s.Start, End: s.End(), Text: text})
	}
	return normalized
}

// normalizeTags lower-cases, trims and de-duplicates tags, keeping first occurrence order.
func normalizeTags(tags []string) []string {
	var normalized []string
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(collapseWhitespace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}
	return normalized
}

func cleanList(items []string) []string {
	var cleaned []string
	for _, item := range items {
		if item = collapseWhitespace(item); item != "" {
			cleaned = append(cleaned, item)
		}
	}
	return cleaned
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func analysisError(code, format string, args ...any) error {
	return apperr.New(apperr.KindAnalysis, code, fmt.Errorf(format, args...))
}
