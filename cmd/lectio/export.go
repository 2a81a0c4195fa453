package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/lectio/internal/assets"
	"github.com/at-ishikawa/lectio/internal/export"
)

func newExportCommand() *cobra.Command {
	var (
		generatePDF bool
		outputDir   string
	)
	command := &cobra.Command{
		Use:   "export <video id>",
		Short: "Write the study sheet of a completed video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			tmpl, err := assets.ParseStudySheetTemplate(env.cfg.Templates.StudySheetTemplate, env.logger)
			if err != nil {
				return fmt.Errorf("assets.ParseStudySheetTemplate() > %w", err)
			}
			if outputDir == "" {
				outputDir = env.cfg.Outputs.ExportDirectory
			}

			exporter := export.NewExporter(env.videos, env.extracts, env.cards, tmpl, outputDir, env.logger)
			result, err := exporter.Export(cmd.Context(), args[0], generatePDF)
			if err != nil {
				return fmt.Errorf("Export(%s) > %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Study sheet written to %s\n", result.MarkdownPath)
			if result.PDFPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "PDF written to %s\n", result.PDFPath)
			}
			return nil
		},
	}
	command.Flags().BoolVar(&generatePDF, "pdf", false, "Generate PDF output in addition to markdown")
	command.Flags().StringVar(&outputDir, "output", "", "Output directory (default from config)")
	return command
}
