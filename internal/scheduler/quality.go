package scheduler

import (
	"fmt"
	"strings"
)

// Quality is the self-reported recall quality of a review.
type Quality int

const (
	QualityAgain Quality = iota
	QualityHard
	QualityGood
	QualityEasy
)

// ParseQuality parses again, hard, good or easy (case-insensitive).
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "again":
		return QualityAgain, nil
	case "hard":
		return QualityHard, nil
	case "good":
		return QualityGood, nil
	case "easy":
		return QualityEasy, nil
	}
	return 0, fmt.Errorf("unknown quality %q: must be one of again, hard, good, easy", s)
}

func (q Quality) String() string {
	switch q {
	case QualityAgain:
		return "again"
	case QualityHard:
		return "hard"
	case QualityGood:
		return "good"
	case QualityEasy:
		return "easy"
	}
	return fmt.Sprintf("quality(%d)", int(q))
}

func (q Quality) Valid() bool {
	return q >= QualityAgain && q <= QualityEasy
}

// IsCorrect reports whether the review counts as a successful recall.
func (q Quality) IsCorrect() bool {
	return q >= QualityGood
}

func (q Quality) clamp() Quality {
	if q < QualityAgain {
		return QualityAgain
	}
	if q > QualityEasy {
		return QualityEasy
	}
	return q
}
