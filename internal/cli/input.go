package cli

import (
	"fmt"
	"strings"

	"github.com/at-ishikawa/lectio/internal/scheduler"
)

func trimInput(line string) string {
	return strings.ToLower(strings.TrimSpace(line))
}

// parseQualityInput accepts the 1-4 shortcuts shown in the prompt or a quality name.
func parseQualityInput(input string) (scheduler.Quality, bool) {
	switch input {
	case "1":
		return scheduler.QualityAgain, true
	case "2":
		return scheduler.QualityHard, true
	case "3":
		return scheduler.QualityGood, true
	case "4":
		return scheduler.QualityEasy, true
	}
	quality, err := scheduler.ParseQuality(input)
	if err != nil {
		return 0, false
	}
	return quality, true
}

func formatInterval(days int) string {
	switch days {
	case 0:
		return "less than a day"
	case 1:
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
