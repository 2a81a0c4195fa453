// Package assets holds the embedded templates used for exports.
package assets

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"go.uber.org/zap"
)

const studySheetTemplateName = "study-sheet.md.go.tmpl"

//go:embed templates/study-sheet.md.go.tmpl
var fallbackStudySheetTemplate string

// ParseStudySheetTemplate parses the template at templatePath, or the embedded
// study sheet template when the path is empty or cannot be parsed.
func ParseStudySheetTemplate(templatePath string, logger *zap.Logger) (*template.Template, error) {
	return parseTemplateWithFallback(templatePath, studySheetTemplateName, fallbackStudySheetTemplate, logger)
}

// FuncMap is available to every export template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"join":     strings.Join,
		"offset":   FormatOffset,
		"duration": func(seconds int) string { return FormatOffset(float64(seconds)) },
		"inc":      func(i int) int { return i + 1 },
	}
}

// FormatOffset renders seconds as m:ss, or h:mm:ss from one hour on.
func FormatOffset(seconds float64) string {
	total := int(seconds)
	h, m, s := total/3600, total%3600/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func parseTemplateWithFallback(templatePath, fallbackName, fallbackTemplate string, logger *zap.Logger) (*template.Template, error) {
	if templatePath != "" {
		if _, err := os.Stat(templatePath); err == nil {
			tmpl, err := template.New(filepath.Base(templatePath)).
				Funcs(FuncMap()).
				ParseFiles(templatePath)
			if err == nil {
				return tmpl, nil
			}
			logger.Warn("failed to parse a template, using the embedded one",
				zap.String("templatePath", templatePath),
				zap.Error(err),
			)
		}
	}

	tmpl, err := template.New(fallbackName).
		Funcs(FuncMap()).
		Parse(fallbackTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded template: %w", err)
	}
	return tmpl, nil
}
