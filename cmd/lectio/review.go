package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/lectio/internal/cli"
)

func newReviewCommand() *cobra.Command {
	var (
		userID string
		limit  int
	)
	command := &cobra.Command{
		Use:   "review",
		Short: "Review due cards interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			if limit == 0 {
				limit = env.cfg.Review.DefaultSessionCards
			}

			reviewCLI := cli.NewReviewCLI(env.reviewManager(), userID)
			ctx := cmd.Context()
			if err := reviewCLI.Start(ctx, limit); err != nil {
				return err
			}
			if reviewCLI.GetCardCount() == 0 {
				fmt.Println("No cards to review. Submit a video first.")
			}
			return reviewCLI.Run(ctx)
		},
	}
	command.Flags().StringVar(&userID, "user", "", "User id to review cards for")
	command.Flags().IntVar(&limit, "limit", 0, "Maximum cards in the session (default from config)")
	_ = command.MarkFlagRequired("user")
	return command
}
