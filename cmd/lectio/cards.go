package main

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/at-ishikawa/lectio/internal/card"
)

type SortFlag string

// Set implements pflag.Value.
func (s *SortFlag) Set(v string) error {
	switch v {
	case string(SortDescending):
		*s = SortDescending
	case string(SortAscending):
		*s = SortAscending
	default:
		return fmt.Errorf("invalid value %q, valid values are %q or %q", v, SortDescending, SortAscending)
	}
	return nil
}

// String implements pflag.Value.
func (s *SortFlag) String() string {
	if s == nil {
		return ""
	}
	return string(*s)
}

// Type implements pflag.Value.
func (s *SortFlag) Type() string {
	return "SortFlag"
}

// CardFilter narrows the cards listing.
type CardFilter string

// Set implements pflag.Value.
func (f *CardFilter) Set(v string) error {
	switch CardFilter(v) {
	case FilterAll, FilterDue, FilterNew, FilterInactive:
		*f = CardFilter(v)
		return nil
	}
	return fmt.Errorf("invalid value %q, valid values are %q, %q, %q or %q", v, FilterAll, FilterDue, FilterNew, FilterInactive)
}

// String implements pflag.Value.
func (f *CardFilter) String() string {
	if f == nil {
		return ""
	}
	return string(*f)
}

// Type implements pflag.Value.
func (f *CardFilter) Type() string {
	return "CardFilter"
}

var (
	_ pflag.Value = (*SortFlag)(nil)
	_ pflag.Value = (*CardFilter)(nil)
)

const (
	SortDescending SortFlag = "desc"
	SortAscending  SortFlag = "asc"

	FilterAll      CardFilter = "all"
	FilterDue      CardFilter = "due"
	FilterNew      CardFilter = "new"
	FilterInactive CardFilter = "inactive"
)

func newCardsCommand() *cobra.Command {
	var (
		userID  string
		videoID string
	)
	sortFlag := SortAscending
	filter := FilterAll

	command := &cobra.Command{
		Use:   "cards",
		Short: "List cards with their review schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" && videoID == "" {
				return fmt.Errorf("either --user or --video is required")
			}
			env, err := openEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := cmd.Context()
			var cards []card.Card
			if videoID != "" {
				cards, err = env.cards.FindByVideo(ctx, videoID)
			} else {
				cards, err = env.cards.FindByUser(ctx, userID)
			}
			if err != nil {
				return fmt.Errorf("failed to load cards: %w", err)
			}

			cards = filterCards(cards, filter, time.Now())
			sortCards(cards, sortFlag == SortDescending)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderCards(cards))
			return err
		},
	}
	flags := command.Flags()
	flags.StringVar(&userID, "user", "", "List every card of a user")
	flags.StringVar(&videoID, "video", "", "List the cards generated from one video")
	flags.Var(&sortFlag, "sort", "Sort order by next review. Options: asc, desc")
	flags.Var(&filter, "filter", "Cards to show. Options: all, due, new, inactive")
	return command
}

func filterCards(cards []card.Card, filter CardFilter, now time.Time) []card.Card {
	if filter == FilterAll {
		return cards
	}
	filtered := make([]card.Card, 0, len(cards))
	for _, c := range cards {
		var keep bool
		switch filter {
		case FilterDue:
			keep = c.IsActive && c.ReviewCount > 0 && c.IsDue(now)
		case FilterNew:
			keep = c.IsActive && c.ReviewCount == 0
		case FilterInactive:
			keep = !c.IsActive
		}
		if keep {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// sortCards orders by next review, never-scheduled cards first in ascending order.
func sortCards(cards []card.Card, descending bool) {
	slices.SortStableFunc(cards, func(a, b card.Card) int {
		cmp := compareNextReview(a.NextReviewAt, b.NextReviewAt)
		if descending {
			return -cmp
		}
		return cmp
	})
}

func compareNextReview(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func renderCards(cards []card.Card) string {
	rows := make([][]string, 0, len(cards))
	for _, c := range cards {
		next := "-"
		if c.NextReviewAt != nil {
			next = c.NextReviewAt.Local().Format("2006-01-02")
		}
		rows = append(rows, []string{
			c.ID,
			string(c.Type),
			c.Question,
			strconv.Itoa(c.ReviewCount),
			fmt.Sprintf("%.0f%%", 100*c.SuccessRate()),
			strconv.FormatFloat(c.EaseFactor, 'f', 2, 64),
			strconv.Itoa(c.CurrentInterval),
			next,
		})
	}
	return renderTable(
		[]string{"ID", "Type", "Question", "Reviews", "Success", "Ease", "Interval", "Next review"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}
