// Package statistics summarizes a user's cards and completed review sessions.
package statistics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/at-ishikawa/lectio/internal/card"
	"github.com/at-ishikawa/lectio/internal/review"
)

// CardStatistics describes the state of a user's deck at one instant.
type CardStatistics struct {
	Total             int
	Active            int
	Due               int // active and reviewed before, due at or before now
	New               int // active and never reviewed
	Reviews           int
	AverageEaseFactor float64 // over active cards
	SuccessRate       float64 // correct reviews over all reviews, 0..1
}

// PeriodStatistics holds completed-session totals for one month ("2025-03").
type PeriodStatistics struct {
	Period           string
	Sessions         int
	CardsReviewed    int
	CorrectAnswers   int
	Accuracy         float64
	AverageVelocity  float64 // cards per minute over sessions that reviewed cards
}

type periodAccumulator struct {
	PeriodStatistics
	velocitySum      float64
	velocitySessions int
}

// StatisticsResult holds deck statistics and per-period session statistics, oldest period first.
type StatisticsResult struct {
	Cards   CardStatistics
	Periods []PeriodStatistics
}

// Collect loads a user's cards and sessions and calculates their statistics.
func Collect(
	ctx context.Context,
	cards card.Store,
	reviews review.Store,
	userID string,
	now time.Time,
	year, month int,
) (StatisticsResult, error) {
	userCards, err := cards.FindByUser(ctx, userID)
	if err != nil {
		return StatisticsResult{}, fmt.Errorf("cards.FindByUser(%s) > %w", userID, err)
	}
	sessions, err := reviews.FindSessionsByUser(ctx, userID)
	if err != nil {
		return StatisticsResult{}, fmt.Errorf("reviews.FindSessionsByUser(%s) > %w", userID, err)
	}
	return CalculateStatistics(userCards, sessions, now, year, month), nil
}

// CalculateStatistics summarizes cards at now and completed sessions by month.
// year and month filter the sessions; 0 means no filter.
func CalculateStatistics(cards []card.Card, sessions []review.Session, now time.Time, year, month int) StatisticsResult {
	return StatisticsResult{
		Cards:   calculateCardStatistics(cards, now),
		Periods: calculatePeriods(sessions, year, month),
	}
}

func calculateCardStatistics(cards []card.Card, now time.Time) CardStatistics {
	var stats CardStatistics
	var easeSum float64
	var correct int
	for i := range cards {
		c := &cards[i]
		stats.Total++
		stats.Reviews += c.ReviewCount
		correct += c.CorrectCount
		if !c.IsActive {
			continue
		}
		stats.Active++
		easeSum += c.EaseFactor
		switch {
		case c.ReviewCount == 0:
			stats.New++
		case c.IsDue(now):
			stats.Due++
		}
	}
	if stats.Active > 0 {
		stats.AverageEaseFactor = round2(easeSum / float64(stats.Active))
	}
	if stats.Reviews > 0 {
		stats.SuccessRate = float64(correct) / float64(stats.Reviews)
	}
	return stats
}

func calculatePeriods(sessions []review.Session, year, month int) []PeriodStatistics {
	periods := make(map[string]*periodAccumulator)
	for _, s := range sessions {
		if s.Status != review.StatusCompleted || s.CompletedAt == nil {
			continue
		}
		completedAt := *s.CompletedAt
		if !matchesFilter(completedAt.Year(), int(completedAt.Month()), year, month) {
			continue
		}

		key := fmt.Sprintf("%d-%02d", completedAt.Year(), int(completedAt.Month()))
		p, ok := periods[key]
		if !ok {
			p = &periodAccumulator{PeriodStatistics: PeriodStatistics{Period: key}}
			periods[key] = p
		}
		p.Sessions++
		p.CardsReviewed += s.CardsReviewed
		p.CorrectAnswers += s.CorrectAnswers
		if s.LearningVelocity != nil {
			p.velocitySum += *s.LearningVelocity
			p.velocitySessions++
		}
	}

	result := make([]PeriodStatistics, 0, len(periods))
	for _, p := range periods {
		if p.CardsReviewed > 0 {
			p.Accuracy = 100 * float64(p.CorrectAnswers) / float64(p.CardsReviewed)
		}
		if p.velocitySessions > 0 {
			p.AverageVelocity = p.velocitySum / float64(p.velocitySessions)
		}
		result = append(result, p.PeriodStatistics)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Period < result[j].Period
	})
	return result
}

func matchesFilter(logYear, logMonth, filterYear, filterMonth int) bool {
	if filterYear != 0 && logYear != filterYear {
		return false
	}
	if filterMonth != 0 && logMonth != filterMonth {
		return false
	}
	return true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
