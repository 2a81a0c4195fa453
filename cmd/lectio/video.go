package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/at-ishikawa/lectio/internal/pipeline"
	"github.com/at-ishikawa/lectio/internal/video"
)

// deferredQueue leaves submitted videos pending for lectio-server's pending sweep.
type deferredQueue struct {
	logger *zap.Logger
}

func (q deferredQueue) Enqueue(_ context.Context, videoID string) error {
	q.logger.Info("video left pending for the server", zap.String("video_id", videoID))
	return nil
}

// inlineQueue processes a video before Enqueue returns.
type inlineQueue struct {
	processor pipeline.Processor
}

func (q inlineQueue) Enqueue(ctx context.Context, videoID string) error {
	return q.processor.Process(ctx, videoID)
}

func (env *environment) service(process bool) (*pipeline.Service, func(), error) {
	if !process {
		return pipeline.NewService(env.videos, deferredQueue{logger: env.logger}, env.logger), func() {}, nil
	}
	controller, closeController, err := env.controller()
	if err != nil {
		return nil, nil, err
	}
	return pipeline.NewService(env.videos, inlineQueue{processor: controller}, env.logger), closeController, nil
}

func newSubmitCommand() *cobra.Command {
	var (
		userID     string
		objectives []string
		process    bool
	)
	command := &cobra.Command{
		Use:   "submit <video url or id>",
		Short: "Submit a video for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			service, closeService, err := env.service(process)
			if err != nil {
				return err
			}
			defer closeService()

			ctx := cmd.Context()
			job, err := service.SubmitVideo(ctx, userID, args[0], objectives)
			if err != nil {
				return fmt.Errorf("SubmitVideo(%s) > %w", args[0], err)
			}
			return printStatus(ctx, cmd.OutOrStdout(), service, job.ID)
		},
	}
	command.Flags().StringVar(&userID, "user", "", "User id the video belongs to")
	command.Flags().StringSliceVar(&objectives, "objective", nil, "Learning objective (repeatable)")
	command.Flags().BoolVar(&process, "process", false, "Process the video now instead of leaving it for the server")
	_ = command.MarkFlagRequired("user")
	return command
}

func newProcessCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "process <video id>",
		Short: "Run the processing pipeline for a pending or failed video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			controller, closeController, err := env.controller()
			if err != nil {
				return err
			}
			defer closeController()

			ctx := cmd.Context()
			if err := controller.Process(ctx, args[0]); err != nil {
				return fmt.Errorf("Process(%s) > %w", args[0], err)
			}
			service := pipeline.NewService(env.videos, deferredQueue{logger: env.logger}, env.logger)
			return printStatus(ctx, cmd.OutOrStdout(), service, args[0])
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <video id>",
		Short: "Show the processing status and log of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			service := pipeline.NewService(env.videos, deferredQueue{logger: env.logger}, env.logger)
			return printStatus(cmd.Context(), cmd.OutOrStdout(), service, args[0])
		},
	}
}

func newRetryCommand() *cobra.Command {
	var process bool
	command := &cobra.Command{
		Use:   "retry <video id>",
		Short: "Reset a failed video and queue it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			service, closeService, err := env.service(process)
			if err != nil {
				return err
			}
			defer closeService()

			ctx := cmd.Context()
			if _, err := service.RetryVideo(ctx, args[0]); err != nil {
				return fmt.Errorf("RetryVideo(%s) > %w", args[0], err)
			}
			return printStatus(ctx, cmd.OutOrStdout(), service, args[0])
		},
	}
	command.Flags().BoolVar(&process, "process", false, "Process the video now instead of leaving it for the server")
	return command
}

func printStatus(ctx context.Context, w io.Writer, service *pipeline.Service, videoID string) error {
	status, err := service.GetStatus(ctx, videoID)
	if err != nil {
		return fmt.Errorf("GetStatus(%s) > %w", videoID, err)
	}
	_, err = fmt.Fprintln(w, renderStatus(status))
	return err
}

func renderStatus(status *pipeline.Status) string {
	summary := renderTable(
		[]string{"Video", "Status", "Stage", "Progress", "Error"},
		[][]string{{
			status.VideoID,
			string(status.Status),
			string(status.Stage),
			strconv.Itoa(status.Progress) + "%",
			status.ErrorMessage,
		}},
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
	if len(status.Log) == 0 {
		return summary
	}

	rows := make([][]string, 0, len(status.Log))
	for _, entry := range status.Log {
		rows = append(rows, []string{
			entry.LoggedAt.Local().Format("2006-01-02 15:04:05"),
			string(entry.Stage),
			outcomeLabel(entry.Outcome),
			entry.Message,
		})
	}
	return summary + "\n" + renderTable([]string{"Time", "Stage", "Outcome", "Message"}, rows, nil)
}

func outcomeLabel(outcome video.Outcome) string {
	switch outcome {
	case video.OutcomeCompleted:
		return "✔ " + string(outcome)
	case video.OutcomeFailed:
		return "✘ " + string(outcome)
	}
	return string(outcome)
}
