package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/shuffle"

	"go.uber.org/zap"
)

const (
	DefaultAmount          = 10
	DefaultQuestionSeconds = 30
)

// QuestionSource fetches a batch of raw questions (remote provider, question bank, etc).
type QuestionSource interface {
	FetchQuestions(ctx context.Context, req domain.BatchRequest) ([]domain.RawQuestion, error)
}

// SessionOptions tunes a single quiz session.
type SessionOptions struct {
	Amount          int
	QuestionSeconds int
	Category        string
	Difficulty      string
	// Rand drives option shuffling; nil seeds from the clock.
	Rand *rand.Rand
	Now  func() time.Time
	// OnFinish runs outside the session lock each time the session reaches results.
	OnFinish func(domain.Result)
	Logger   *zap.Logger
}

// Session is the quiz state machine for one player: it loads a batch of
// questions, walks through them with a per-question countdown, locks the
// first answer per question and produces the results summary.
//
// Session is safe for concurrent use; every operation is applied as a single
// event under the session lock and subscribers receive a View afterwards.
type Session struct {
	id       string
	source   QuestionSource
	amount   int
	seconds  int
	request  domain.BatchRequest
	rnd      *rand.Rand
	now      func() time.Time
	onFinish func(domain.Result)
	logger   *zap.Logger

	mu          sync.RWMutex
	phase       domain.Phase
	errMsg      string
	questions   []domain.Question
	answers     []*domain.UserAnswer
	index       int
	score       int
	remaining   int
	order       []domain.AnswerOption
	result      *domain.Result
	generation  uint64
	epoch       uint64
	cancelFetch context.CancelFunc
	closed      bool
	subscribers map[chan domain.View]struct{}

	// activated is signaled whenever the active question changes or the
	// session leaves the active state, so a Countdown can restart.
	activated chan struct{}
}

// NewSession creates a session in the NotStarted phase.
func NewSession(id string, source QuestionSource, opts SessionOptions) *Session {
	amount := opts.Amount
	if amount <= 0 {
		amount = DefaultAmount
	}
	seconds := opts.QuestionSeconds
	if seconds <= 0 {
		seconds = DefaultQuestionSeconds
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		id:      id,
		source:  source,
		amount:  amount,
		seconds: seconds,
		request: domain.BatchRequest{
			Amount:     amount,
			Category:   opts.Category,
			Difficulty: opts.Difficulty,
		},
		rnd:         rnd,
		now:         now,
		onFinish:    opts.OnFinish,
		logger:      logger,
		phase:       domain.PhaseNotStarted,
		subscribers: make(map[chan domain.View]struct{}),
		activated:   make(chan struct{}, 1),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// StartQuiz moves NotStarted to Loading and fetches the batch in the
// background. The fetch is bound to ctx and to the current load generation:
// Restart cancels it and a stale completion is discarded.
func (s *Session) StartQuiz(ctx context.Context) bool {
	var (
		gen      uint64
		fetchCtx context.Context
	)
	started := s.mutate(func() bool {
		if s.closed || s.phase != domain.PhaseNotStarted {
			return false
		}
		s.generation++
		gen = s.generation
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithCancel(ctx)
		s.cancelFetch = cancel
		s.phase = domain.PhaseLoading
		s.errMsg = ""
		return true
	})
	if started {
		go s.load(fetchCtx, gen)
	}
	return started
}

func (s *Session) load(ctx context.Context, gen uint64) {
	raws, err := s.source.FetchQuestions(ctx, s.request)
	var questions []domain.Question
	if err == nil {
		questions, err = domain.NormalizeAll(raws)
	}
	if err == nil && len(questions) == 0 {
		err = fmt.Errorf("%w: source returned no questions", domain.ErrFetchFailed)
	}
	if !s.completeLoad(gen, questions, err) {
		s.logger.Debug("discarded stale load", zap.String("session_id", s.id), zap.Uint64("generation", gen))
		return
	}
	if err != nil {
		s.logger.Warn("question fetch failed", zap.String("session_id", s.id), zap.Error(err))
	}
}

// completeLoad applies a fetch outcome if it belongs to the current load.
func (s *Session) completeLoad(gen uint64, questions []domain.Question, err error) bool {
	return s.mutate(func() bool {
		if gen != s.generation || s.phase != domain.PhaseLoading {
			return false
		}
		if s.cancelFetch != nil {
			s.cancelFetch()
			s.cancelFetch = nil
		}
		if err != nil {
			s.phase = domain.PhaseError
			s.errMsg = err.Error()
			return true
		}
		s.questions = questions
		s.answers = make([]*domain.UserAnswer, len(questions))
		s.index = 0
		s.score = 0
		s.phase = domain.PhaseReady
		s.enterQuestionLocked()
		return true
	})
}

// SelectAnswer records the answer for the active question. Only the first
// answer per question counts; later calls, unknown option text and calls
// outside an active question are no-ops.
func (s *Session) SelectAnswer(text string) (domain.UserAnswer, bool) {
	var recorded domain.UserAnswer
	ok := s.mutate(func() bool {
		if s.phase != domain.PhaseReady || s.answers[s.index] != nil || s.remaining == 0 {
			return false
		}
		question := s.questions[s.index]
		option, found := question.Option(text)
		if !found {
			return false
		}
		recorded = domain.UserAnswer{
			IsCorrect:    option.IsCorrect,
			SelectedText: text,
			CorrectText:  question.CorrectOption().Text,
		}
		answer := recorded
		s.answers[s.index] = &answer
		if option.IsCorrect {
			s.score++
		}
		return true
	})
	return recorded, ok
}

// NextQuestion advances to the next question or, from the last one, to the
// results. It acts the same whether or not the question was answered.
func (s *Session) NextQuestion() bool {
	return s.mutate(func() bool {
		if s.phase != domain.PhaseReady {
			return false
		}
		s.nextLocked()
		return true
	})
}

// PreviousQuestion steps back for review. Recorded answers stay locked.
func (s *Session) PreviousQuestion() bool {
	return s.mutate(func() bool {
		if s.phase != domain.PhaseReady || s.index == 0 {
			return false
		}
		s.index--
		s.enterQuestionLocked()
		return true
	})
}

// Tick counts the active question's timer down by one second and advances
// when it reaches zero.
func (s *Session) Tick() bool {
	s.mu.RLock()
	epoch := s.epoch
	s.mu.RUnlock()
	return s.TickEpoch(epoch)
}

// TickEpoch is Tick for a scheduler that observed the given question epoch;
// ticks from an earlier epoch are ignored.
func (s *Session) TickEpoch(epoch uint64) bool {
	return s.mutate(func() bool {
		if epoch != s.epoch || s.phase != domain.PhaseReady || s.remaining == 0 {
			return false
		}
		s.remaining--
		if s.remaining == 0 {
			s.nextLocked()
		}
		return true
	})
}

// Restart clears the session back to NotStarted and cancels any fetch in flight.
func (s *Session) Restart() bool {
	return s.mutate(func() bool {
		if s.closed {
			return false
		}
		s.resetLocked()
		return true
	})
}

// Close cancels any fetch and releases all subscribers. A closed session
// ignores StartQuiz and Restart.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.resetLocked()
	s.closed = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// View returns a snapshot for rendering.
func (s *Session) View() domain.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

// Phase reports the current lifecycle phase.
func (s *Session) Phase() domain.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Score is the number of correctly answered questions.
func (s *Session) Score() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.score
}

// Answers returns a copy of the recorded answers, nil where unanswered.
func (s *Session) Answers() []*domain.UserAnswer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.UserAnswer, len(s.answers))
	for i, a := range s.answers {
		if a != nil {
			answer := *a
			out[i] = &answer
		}
	}
	return out
}

// Subscribe returns a channel that receives a View after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.View, func()) {
	ch := make(chan domain.View, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	// ch is new and buffered; send under the lock so Close cannot close it first.
	ch <- s.viewLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// activeEpoch reports the current question epoch and whether a question is active.
func (s *Session) activeEpoch() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch, s.phase == domain.PhaseReady
}

// mutate applies fn under the lock, broadcasts when fn reports a change and
// fires the finish hook outside the lock when results were just reached.
func (s *Session) mutate(fn func() bool) bool {
	s.mu.Lock()
	before := s.phase
	changed := fn()
	var finished *domain.Result
	if changed {
		s.broadcastLocked()
		if before != domain.PhaseResults && s.phase == domain.PhaseResults && s.result != nil {
			result := *s.result
			finished = &result
		}
	}
	s.mu.Unlock()

	if finished != nil && s.onFinish != nil {
		s.onFinish(*finished)
	}
	return changed
}

func (s *Session) nextLocked() {
	if s.index+1 < len(s.questions) {
		s.index++
		s.enterQuestionLocked()
		return
	}
	s.phase = domain.PhaseResults
	s.result = s.buildResultLocked()
	s.bumpEpochLocked()
}

// enterQuestionLocked reshuffles the active question's options and restarts its timer.
func (s *Session) enterQuestionLocked() {
	s.order = shuffle.Shuffle(s.questions[s.index].Options, s.rnd)
	s.remaining = s.seconds
	s.bumpEpochLocked()
}

func (s *Session) bumpEpochLocked() {
	s.epoch++
	select {
	case s.activated <- struct{}{}:
	default:
	}
}

func (s *Session) resetLocked() {
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	s.generation++
	s.phase = domain.PhaseNotStarted
	s.errMsg = ""
	s.questions = nil
	s.answers = nil
	s.index = 0
	s.score = 0
	s.remaining = 0
	s.order = nil
	s.result = nil
	s.bumpEpochLocked()
}

func (s *Session) buildResultLocked() *domain.Result {
	items := make([]domain.ResultItem, len(s.questions))
	for i, q := range s.questions {
		item := domain.ResultItem{
			Question:   q.Text,
			Selected:   domain.NotAnswered,
			Correct:    q.CorrectOption().Text,
			Category:   q.Category,
			Difficulty: q.Difficulty,
		}
		if answer := s.answers[i]; answer != nil {
			item.Answered = true
			item.Selected = answer.SelectedText
			item.IsCorrect = answer.IsCorrect
		}
		items[i] = item
	}
	return &domain.Result{
		SessionID:  s.id,
		Score:      s.score,
		Total:      len(s.questions),
		Items:      items,
		FinishedAt: s.now(),
	}
}

func (s *Session) broadcastLocked() {
	view := s.viewLocked()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			// Drop the oldest pending view so a slow reader never blocks the session.
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

func (s *Session) viewLocked() domain.View {
	view := domain.View{
		SessionID:        s.id,
		Phase:            s.phase,
		Encoding:         "html",
		Error:            s.errMsg,
		Total:            s.amount,
		Score:            s.score,
		RemainingSeconds: s.remaining,
	}

	switch s.phase {
	case domain.PhaseReady:
		view.Index = s.index
		view.Total = len(s.questions)
		view.Progress = float64(s.index+1) / float64(len(s.questions))
		view.Question = s.questionViewLocked()
	case domain.PhaseResults:
		view.Index = s.index
		view.Total = len(s.questions)
		view.Progress = 1
		if s.result != nil {
			result := *s.result
			result.Items = append([]domain.ResultItem(nil), s.result.Items...)
			view.Result = &result
		}
	}
	return view
}

func (s *Session) questionViewLocked() *domain.QuestionView {
	answer := s.answers[s.index]
	enabled := answer == nil && s.remaining > 0

	options := make([]domain.OptionView, len(s.order))
	for i, opt := range s.order {
		options[i] = domain.OptionView{
			Text:    opt.Text,
			Enabled: enabled,
			Hint:    optionHint(answer, opt),
		}
	}

	qv := &domain.QuestionView{
		Text:        s.questions[s.index].Text,
		Options:     options,
		NextLabel:   domain.LabelSkip,
		CanPrevious: s.index > 0,
	}
	if answer != nil {
		recorded := *answer
		qv.Answer = &recorded
		qv.NextLabel = domain.LabelNext
		if s.index == len(s.questions)-1 {
			qv.NextLabel = domain.LabelFinish
		}
	}
	return qv
}

func optionHint(answer *domain.UserAnswer, opt domain.AnswerOption) domain.OptionHint {
	switch {
	case answer == nil:
		return domain.HintAvailable
	case answer.SelectedText == opt.Text && answer.IsCorrect:
		return domain.HintSelectedCorrect
	case answer.SelectedText == opt.Text:
		return domain.HintSelectedIncorrect
	case opt.IsCorrect:
		return domain.HintCorrect
	default:
		return domain.HintDisabled
	}
}
