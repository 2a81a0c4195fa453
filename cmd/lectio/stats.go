package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/lectio/internal/statistics"
)

func newStatsCommand() *cobra.Command {
	var (
		userID string
		year   int
		month  int
	)
	command := &cobra.Command{
		Use:   "stats",
		Short: "Show review statistics of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if month < 0 || month > 12 {
				return fmt.Errorf("invalid month %d", month)
			}
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			result, err := statistics.Collect(cmd.Context(), env.cards, env.reviews, userID, time.Now().UTC(), year, month)
			if err != nil {
				return fmt.Errorf("statistics.Collect() > %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderStatistics(result))
			return err
		},
	}
	command.Flags().StringVar(&userID, "user", "", "User id")
	command.Flags().IntVar(&year, "year", 0, "Only count sessions completed in this year")
	command.Flags().IntVar(&month, "month", 0, "Only count sessions completed in this month (1-12)")
	_ = command.MarkFlagRequired("user")
	return command
}

func renderStatistics(result statistics.StatisticsResult) string {
	c := result.Cards
	cards := renderTable(
		[]string{"Cards", "Active", "Due", "New", "Reviews", "Avg ease", "Success"},
		[][]string{{
			strconv.Itoa(c.Total),
			strconv.Itoa(c.Active),
			strconv.Itoa(c.Due),
			strconv.Itoa(c.New),
			strconv.Itoa(c.Reviews),
			strconv.FormatFloat(c.AverageEaseFactor, 'f', 2, 64),
			fmt.Sprintf("%.1f%%", 100*c.SuccessRate),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
	if len(result.Periods) == 0 {
		return cards + "\nNo completed sessions."
	}

	rows := make([][]string, 0, len(result.Periods))
	for _, p := range result.Periods {
		rows = append(rows, []string{
			p.Period,
			strconv.Itoa(p.Sessions),
			strconv.Itoa(p.CardsReviewed),
			fmt.Sprintf("%.1f%%", p.Accuracy),
			strconv.FormatFloat(p.AverageVelocity, 'f', 2, 64),
		})
	}
	sessions := renderTable(
		[]string{"Period", "Sessions", "Reviewed", "Accuracy", "Cards/min"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
	return cards + "\n" + sessions
}
