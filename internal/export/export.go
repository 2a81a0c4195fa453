// Package export writes study sheets for processed videos.
package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"go.uber.org/zap"

	"github.com/at-ishikawa/lectio/internal/apperr"
	"github.com/at-ishikawa/lectio/internal/card"
	"github.com/at-ishikawa/lectio/internal/extract"
	"github.com/at-ishikawa/lectio/internal/video"
)

const CodeVideoNotCompleted = "video_not_completed"

// StudySheet is the data a study sheet template is executed with.
type StudySheet struct {
	Video    *video.Job
	Extracts []extract.Extract
	Cards    []card.Card
}

type Result struct {
	MarkdownPath string
	PDFPath      string
}

type Exporter struct {
	videos    video.Store
	extracts  extract.Store
	cards     card.Store
	template  *template.Template
	outputDir string
	logger    *zap.Logger
}

func NewExporter(
	videos video.Store,
	extracts extract.Store,
	cards card.Store,
	tmpl *template.Template,
	outputDir string,
	logger *zap.Logger,
) *Exporter {
	return &Exporter{
		videos:    videos,
		extracts:  extracts,
		cards:     cards,
		template:  tmpl,
		outputDir: outputDir,
		logger:    logger.Named("export"),
	}
}

// Export renders the study sheet of a completed video to {outputDir}/{sourceID}.md
// and, when withPDF is set, renders the same sheet to {outputDir}/{sourceID}.pdf.
func (e *Exporter) Export(ctx context.Context, videoID string, withPDF bool) (*Result, error) {
	job, err := e.videos.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if job.Status != video.StatusCompleted {
		return nil, apperr.InvalidState(CodeVideoNotCompleted, "video %s is %s, only completed videos can be exported", videoID, job.Status)
	}

	extracts, err := e.extracts.FindByVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("find extracts: %w", err)
	}
	cards, err := e.cards.FindByVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("find cards: %w", err)
	}

	var buf bytes.Buffer
	if err := e.template.Execute(&buf, StudySheet{Video: job, Extracts: extracts, Cards: cards}); err != nil {
		return nil, fmt.Errorf("template.Execute() > %w", err)
	}

	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll(%s) > %w", e.outputDir, err)
	}
	result := &Result{MarkdownPath: filepath.Join(e.outputDir, job.SourceID+".md")}
	if err := os.WriteFile(result.MarkdownPath, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("os.WriteFile(%s) > %w", result.MarkdownPath, err)
	}

	if withPDF {
		result.PDFPath, err = WritePDF(filepath.Join(e.outputDir, job.SourceID+".pdf"), buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("WritePDF() > %w", err)
		}
	}

	e.logger.Info("study sheet exported",
		zap.String("video_id", videoID),
		zap.String("markdown", result.MarkdownPath),
		zap.String("pdf", result.PDFPath),
	)
	return result, nil
}
