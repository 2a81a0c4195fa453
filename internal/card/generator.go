package card

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/at-ishikawa/lectio/internal/extract"
	"github.com/at-ishikawa/lectio/internal/scheduler"
)

// Distractors are the wrong options offered on every multiple-choice card, in order.
var Distractors = []string{
	"A related but distinct concept",
	"An unrelated term from a different domain",
	"None of the above",
}

// Generator turns knowledge extracts into review cards.
type Generator struct {
	newID func() string
	now   func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{
		newID: newID,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// NewGeneratorWith returns a Generator with fixed id and clock sources.
func NewGeneratorWith(newID func() string, now func() time.Time) *Generator {
	return &Generator{newID: newID, now: now}
}

// GenerateCards returns a recall card for every extract, followed by a
// multiple-choice card when the extract is a definition.
func (g *Generator) GenerateCards(e extract.Extract) []Card {
	now := g.now()
	hint := "Appears at " + formatOffset(e.StartTime) + " in the video"

	cards := []Card{
		g.newCard(e, now, TypeFlashcard, DifficultyMedium,
			fmt.Sprintf("What is %s?", e.Title), e.Content, nil, []string{hint}, ""),
	}

	if e.Type == extract.TypeDefinition {
		options := make([]string, 0, len(Distractors)+1)
		options = append(options, e.Content)
		options = append(options, Distractors...)
		cards = append(cards, g.newCard(e, now, TypeMultipleChoice, DifficultyEasy,
			fmt.Sprintf("Which of the following defines %s?", e.Title), e.Content, options, nil,
			fmt.Sprintf("%s is defined at %s in the video.", e.Title, formatOffset(e.StartTime))))
	}
	return cards
}

func (g *Generator) newCard(
	e extract.Extract,
	now time.Time,
	typ Type,
	difficulty Difficulty,
	question, answer string,
	options, hints []string,
	explanation string,
) Card {
	var tags []string
	if len(e.Tags) > 0 {
		tags = append(tags, e.Tags...)
	}
	return Card{
		ID:              g.newID(),
		UserID:          e.UserID,
		ExtractID:       e.ID,
		VideoID:         e.VideoID,
		Question:        question,
		Answer:          answer,
		Type:            typ,
		Options:         options,
		Hints:           hints,
		Explanation:     explanation,
		Difficulty:      difficulty,
		Tags:            tags,
		CurrentInterval: 0,
		EaseFactor:      scheduler.DefaultEaseFactor,
		IsActive:        true,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// newID returns a time-ordered UUID so cards created in the same instant keep
// their creation order when sorted by id.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// formatOffset renders seconds as mm:ss, or h:mm:ss past an hour.
func formatOffset(seconds float64) string {
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
