package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"

	"github.com/at-ishikawa/lectio/internal/card"
	"github.com/at-ishikawa/lectio/internal/review"
	"github.com/at-ishikawa/lectio/internal/scheduler"
)

var (
	errEnd  = errors.New("end")
	errQuit = errors.New("quit")
)

//go:generate mockgen -source=interactive_review_cli.go -destination=../mocks/cli/mock_review_manager.go -package=mock_cli ReviewManager

// ReviewManager is the part of review.Manager the terminal session drives.
type ReviewManager interface {
	StartSession(ctx context.Context, userID string, limit int) (*review.Session, []card.Card, error)
	SubmitReview(ctx context.Context, sessionID, cardID string, quality scheduler.Quality, responseTimeMs int64) (*card.Card, *review.Session, error)
	CompleteSession(ctx context.Context, sessionID string) (*review.Session, error)
	PauseSession(ctx context.Context, sessionID string) (*review.Session, error)
}

// ReviewCLI runs one review session in a terminal: it shows a question,
// reveals the answer on Enter and records the self-rated quality.
type ReviewCLI struct {
	manager      ReviewManager
	userID       string
	stdinReader  *bufio.Reader
	stdoutWriter io.Writer
	bold         *color.Color
	italic       *color.Color
	faint        *color.Color
	now          func() time.Time

	session *review.Session
	cards   []card.Card
}

func NewReviewCLI(manager ReviewManager, userID string) *ReviewCLI {
	return newReviewCLI(manager, userID, os.Stdin, os.Stdout, time.Now)
}

func newReviewCLI(manager ReviewManager, userID string, in io.Reader, out io.Writer, now func() time.Time) *ReviewCLI {
	return &ReviewCLI{
		manager:      manager,
		userID:       userID,
		stdinReader:  bufio.NewReader(in),
		stdoutWriter: out,
		bold:         color.New(color.Bold),
		italic:       color.New(color.Italic),
		faint:        color.New(color.Faint),
		now:          now,
	}
}

// Start opens a session over up to limit cards.
func (cli *ReviewCLI) Start(ctx context.Context, limit int) error {
	session, cards, err := cli.manager.StartSession(ctx, cli.userID, limit)
	if err != nil {
		return fmt.Errorf("manager.StartSession(%s) > %w", cli.userID, err)
	}
	cli.session = session
	cli.cards = cards
	_, _ = fmt.Fprintf(cli.stdoutWriter, "Starting a review of %d cards.\n\n", len(cards))
	return nil
}

// GetCardCount returns the number of cards not yet answered.
func (cli *ReviewCLI) GetCardCount() int {
	return len(cli.cards)
}

// Run answers cards until none remain, the user quits or ctx is interrupted.
// A finished deck completes the session; quitting or an interrupt pauses it.
func (cli *ReviewCLI) Run(ctx context.Context) error {
	if cli.session == nil {
		return errors.New("review session is not started")
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if err := cli.Session(ctx); err != nil {
				errCh <- err
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		_, _ = fmt.Fprintln(cli.stdoutWriter, "Received interrupt signal, pausing the session...")
		return cli.pause(context.WithoutCancel(ctx))
	case err := <-errCh:
		switch {
		case errors.Is(err, errEnd):
			return cli.complete(ctx)
		case errors.Is(err, errQuit):
			return cli.pause(ctx)
		case err != nil:
			return fmt.Errorf("error: %w", err)
		}
	}
	return nil
}

// Session reviews the next card.
func (cli *ReviewCLI) Session(ctx context.Context) error {
	if len(cli.cards) == 0 {
		_, _ = fmt.Fprintln(cli.stdoutWriter, "No more cards to review!")
		return errEnd
	}
	current := cli.cards[0]

	shownAt := cli.now()
	cli.printQuestion(current)
	if err := cli.waitForReveal(current); err != nil {
		return err
	}
	responseTime := cli.now().Sub(shownAt)
	cli.printAnswer(current)

	quality, err := cli.readQuality()
	if err != nil {
		return err
	}

	reviewed, _, err := cli.manager.SubmitReview(ctx, cli.session.ID, current.ID, quality, responseTime.Milliseconds())
	if err != nil {
		return fmt.Errorf("manager.SubmitReview(%s) > %w", current.ID, err)
	}

	if quality.IsCorrect() {
		_, _ = fmt.Fprint(cli.stdoutWriter, "✅ ")
		_, _ = color.New(color.FgGreen).Fprintf(cli.stdoutWriter, "Rated %s. ", quality)
	} else {
		_, _ = fmt.Fprint(cli.stdoutWriter, "❌ ")
		_, _ = color.New(color.FgRed).Fprintf(cli.stdoutWriter, "Rated %s. ", quality)
	}
	_, _ = fmt.Fprintf(cli.stdoutWriter, "Next review in %s.\n\n", formatInterval(reviewed.CurrentInterval))

	cli.cards = cli.cards[1:]
	return nil
}

func (cli *ReviewCLI) printQuestion(c card.Card) {
	w := cli.stdoutWriter
	_, _ = cli.faint.Fprintf(w, "[%s / %s]", c.Type, c.Difficulty)
	if len(c.Tags) > 0 {
		_, _ = cli.faint.Fprintf(w, " %v", []string(c.Tags))
	}
	_, _ = fmt.Fprintln(w)
	_, _ = cli.bold.Fprintln(w, c.Question)
	for i, option := range c.Options {
		_, _ = fmt.Fprintf(w, "  %d. %s\n", i+1, option)
	}
}

// waitForReveal reads lines until a plain Enter. "h" prints the next hint, "q" quits.
func (cli *ReviewCLI) waitForReveal(c card.Card) error {
	hints := 0
	for {
		prompt := "Press Enter to reveal the answer"
		if hints < len(c.Hints) {
			prompt += ", h for a hint"
		}
		_, _ = fmt.Fprintf(cli.stdoutWriter, "%s, q to quit: ", prompt)

		line, err := cli.readLine()
		if err != nil {
			return err
		}
		switch line {
		case "":
			return nil
		case "q", "quit":
			return errQuit
		case "h", "hint":
			if hints < len(c.Hints) {
				_, _ = cli.italic.Fprintf(cli.stdoutWriter, "Hint: %s\n", c.Hints[hints])
				hints++
			}
		}
	}
}

func (cli *ReviewCLI) printAnswer(c card.Card) {
	w := cli.stdoutWriter
	_, _ = fmt.Fprintf(w, "Answer: %s\n", cli.italic.Sprint(c.Answer))
	if c.Explanation != "" {
		_, _ = fmt.Fprintf(w, "   %s\n", c.Explanation)
	}
}

func (cli *ReviewCLI) readQuality() (scheduler.Quality, error) {
	for {
		_, _ = fmt.Fprint(cli.stdoutWriter, "How well did you recall it? [1] again [2] hard [3] good [4] easy: ")
		line, err := cli.readLine()
		if err != nil {
			return 0, err
		}
		if line == "q" || line == "quit" {
			return 0, errQuit
		}
		if quality, ok := parseQualityInput(line); ok {
			return quality, nil
		}
		_, _ = color.New(color.FgYellow).Fprintf(cli.stdoutWriter, "Unknown rating %q\n", line)
	}
}

func (cli *ReviewCLI) readLine() (string, error) {
	line, err := cli.stdinReader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", errQuit
		}
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return trimInput(line), nil
}

func (cli *ReviewCLI) complete(ctx context.Context) error {
	session, err := cli.manager.CompleteSession(ctx, cli.session.ID)
	if err != nil {
		return fmt.Errorf("manager.CompleteSession(%s) > %w", cli.session.ID, err)
	}
	cli.session = session
	w := cli.stdoutWriter
	_, _ = cli.bold.Fprintln(w, "Session completed")
	_, _ = fmt.Fprintf(w, "  Reviewed: %d (correct %d, incorrect %d)\n", session.CardsReviewed, session.CorrectAnswers, session.IncorrectAnswers)
	_, _ = fmt.Fprintf(w, "  Accuracy: %.1f%%\n", session.Accuracy)
	if session.LearningVelocity != nil {
		_, _ = fmt.Fprintf(w, "  Velocity: %.2f cards/min\n", *session.LearningVelocity)
	}
	return nil
}

func (cli *ReviewCLI) pause(ctx context.Context) error {
	session, err := cli.manager.PauseSession(ctx, cli.session.ID)
	if err != nil {
		return fmt.Errorf("manager.PauseSession(%s) > %w", cli.session.ID, err)
	}
	cli.session = session
	_, _ = fmt.Fprintf(cli.stdoutWriter, "Session paused after %d cards.\n", session.CardsReviewed)
	return nil
}
