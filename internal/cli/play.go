package cli

import (
	"bufio"
	"context"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"time"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/config"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/logging"

	"github.com/spf13/cobra"
)

type playOptions struct {
	offline    bool
	amount     int
	seconds    int
	category   int
	difficulty string
}

// NewPlayCmd runs a single quiz session in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	opts := playOptions{}
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			opts.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			// keep the terminal for the quiz
			logger, err := logging.New("error", cfg.Log.Development)
			if err != nil {
				return err
			}

			d, err := buildDeps(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer d.Close()

			session := app.NewSession("terminal", d.source, app.SessionOptions{
				Amount:          cfg.Quiz.Amount,
				QuestionSeconds: cfg.Quiz.QuestionSeconds,
				Category:        cfg.CategoryID(),
				Difficulty:      cfg.Quiz.Difficulty,
				Logger:          logger,
			})
			defer session.Close()
			return playSession(cmd.Context(), session, time.Second, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "use the built-in sample questions")
	cmd.Flags().IntVar(&opts.amount, "amount", 0, "number of questions")
	cmd.Flags().IntVar(&opts.seconds, "seconds", 0, "seconds per question")
	cmd.Flags().IntVar(&opts.category, "category", 0, "provider category id (see categories)")
	cmd.Flags().StringVar(&opts.difficulty, "difficulty", "", "easy, medium or hard")
	return cmd
}

func (o playOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	if o.offline {
		cfg.Provider.Kind = config.ProviderStatic
	}
	if cmd.Flags().Changed("amount") {
		cfg.Quiz.Amount = o.amount
	}
	if cmd.Flags().Changed("seconds") {
		cfg.Quiz.QuestionSeconds = o.seconds
	}
	if cmd.Flags().Changed("category") {
		cfg.Quiz.Category = o.category
	}
	if cmd.Flags().Changed("difficulty") {
		cfg.Quiz.Difficulty = o.difficulty
	}
}

type commandKind int

const (
	cmdUnknown commandKind = iota
	cmdStart
	cmdSelect
	cmdNext
	cmdPrevious
	cmdRestart
	cmdQuit
)

type command struct {
	kind   commandKind
	option int // 1-based, for cmdSelect
}

func parseCommand(line string) command {
	line = strings.ToLower(strings.TrimSpace(line))
	switch line {
	case "", "s", "start":
		return command{kind: cmdStart}
	case "n", "next", "skip":
		return command{kind: cmdNext}
	case "p", "prev", "previous":
		return command{kind: cmdPrevious}
	case "r", "restart":
		return command{kind: cmdRestart}
	case "q", "quit", "exit":
		return command{kind: cmdQuit}
	}
	if n, err := strconv.Atoi(line); err == nil && n > 0 {
		return command{kind: cmdSelect, option: n}
	}
	return command{kind: cmdUnknown}
}

// playSession drives session from line input until quit, EOF or ctx ends.
func playSession(ctx context.Context, session *app.Session, tick time.Duration, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go app.NewCountdown(session, tick).Run(ctx)

	views, unsubscribe := session.Subscribe()
	defer unsubscribe()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	r := &renderer{out: out}
	for {
		select {
		case <-ctx.Done():
			return nil
		case view, ok := <-views:
			if !ok {
				return nil
			}
			r.render(view)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := applyCommand(ctx, session, parseCommand(line), out); quit {
				return nil
			}
		}
	}
}

func applyCommand(ctx context.Context, session *app.Session, c command, out io.Writer) bool {
	view := session.View()
	switch c.kind {
	case cmdQuit:
		return true
	case cmdStart:
		switch view.Phase {
		case domain.PhaseError, domain.PhaseResults:
			session.Restart()
			session.StartQuiz(ctx)
		case domain.PhaseNotStarted:
			session.StartQuiz(ctx)
		}
	case cmdSelect:
		if view.Question == nil || c.option > len(view.Question.Options) {
			fmt.Fprintln(out, "  no such option")
			return false
		}
		session.SelectAnswer(view.Question.Options[c.option-1].Text)
	case cmdNext:
		session.NextQuestion()
	case cmdPrevious:
		session.PreviousQuestion()
	case cmdRestart:
		session.Restart()
	default:
		fmt.Fprintln(out, "  commands: <number> answer, n next/skip, p previous, r restart, q quit")
	}
	return false
}

// renderer redraws a screen when the phase, question or answer changes and
// prints short countdown warnings in between.
type renderer struct {
	out  io.Writer
	last string
}

func (r *renderer) render(v domain.View) {
	key := fmt.Sprintf("%s/%d/%t", v.Phase, v.Index, v.Question != nil && v.Question.Answer != nil)
	if key == r.last {
		if v.Phase == domain.PhaseReady && (v.RemainingSeconds == 10 || v.RemainingSeconds == 5) {
			fmt.Fprintf(r.out, "  %ds left\n", v.RemainingSeconds)
		}
		return
	}
	r.last = key

	w := r.out
	switch v.Phase {
	case domain.PhaseNotStarted:
		fmt.Fprintf(w, "\nTrivia quiz: %d questions. Press Enter to start.\n", v.Total)
	case domain.PhaseLoading:
		fmt.Fprintln(w, "Loading questions...")
	case domain.PhaseError:
		fmt.Fprintf(w, "Error: %s\nPress Enter to try again.\n", v.Error)
	case domain.PhaseReady:
		r.renderQuestion(v)
	case domain.PhaseResults:
		r.renderResults(v)
	}
}

func (r *renderer) renderQuestion(v domain.View) {
	w := r.out
	q := v.Question
	fmt.Fprintf(w, "\nQuestion %d/%d  score %d  %ds\n", v.Index+1, v.Total, v.Score, v.RemainingSeconds)
	fmt.Fprintln(w, html.UnescapeString(q.Text))
	for i, opt := range q.Options {
		fmt.Fprintf(w, "  %d) %s%s\n", i+1, html.UnescapeString(opt.Text), hintMark(opt.Hint))
	}
	if q.Answer != nil {
		if q.Answer.IsCorrect {
			fmt.Fprintln(w, "Correct!")
		} else {
			fmt.Fprintf(w, "Wrong, the answer is %s.\n", html.UnescapeString(q.Answer.CorrectText))
		}
	}
	prompt := "[n] " + q.NextLabel
	if q.CanPrevious {
		prompt = "[p] Previous  " + prompt
	}
	fmt.Fprintln(w, prompt)
}

func (r *renderer) renderResults(v domain.View) {
	w := r.out
	res := v.Result
	if res == nil {
		return
	}
	fmt.Fprintf(w, "\nQuiz complete! You scored %d out of %d.\n", res.Score, res.Total)
	for i, item := range res.Items {
		mark := "x"
		if item.IsCorrect {
			mark = "+"
		}
		fmt.Fprintf(w, "%s %d. %s\n", mark, i+1, html.UnescapeString(item.Question))
		fmt.Fprintf(w, "     your answer: %s\n", html.UnescapeString(item.Selected))
		if !item.IsCorrect {
			fmt.Fprintf(w, "     correct:     %s\n", html.UnescapeString(item.Correct))
		}
	}
	fmt.Fprintln(w, "Press Enter to play again or q to quit.")
}

func hintMark(h domain.OptionHint) string {
	switch h {
	case domain.HintSelectedCorrect:
		return "  <- correct"
	case domain.HintSelectedIncorrect:
		return "  <- your answer"
	case domain.HintCorrect:
		return "  <- answer"
	default:
		return ""
	}
}
