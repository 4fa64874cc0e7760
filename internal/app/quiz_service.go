package app

import (
	"context"
	"sync"
	"time"

	"trivia-quiz/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis-backed, etc).
type SessionRepository interface {
	Add(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
	List() []*Session
}

// ResultRepository stores summaries of finished sessions.
type ResultRepository interface {
	SaveResult(ctx context.Context, result domain.Result) error
	GetResult(ctx context.Context, sessionID string) (domain.Result, error)
}

// Settings configures the sessions a QuizService creates.
type Settings struct {
	Amount          int
	QuestionSeconds int
	Category        string
	Difficulty      string
	// TickInterval is the countdown period; one tick removes one second.
	TickInterval time.Duration
}

// QuizService contains the quiz use cases on top of individual sessions.
type QuizService struct {
	sessions SessionRepository
	results  ResultRepository
	source   QuestionSource
	settings Settings
	logger   *zap.Logger
	newID    func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	stops map[string]context.CancelFunc
}

func NewQuizService(store SessionRepository, results ResultRepository, source QuestionSource, settings Settings, logger *zap.Logger) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.TickInterval <= 0 {
		settings.TickInterval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &QuizService{
		sessions: store,
		results:  results,
		source:   source,
		settings: settings,
		logger:   logger,
		newID:    uuid.NewString,
		ctx:      ctx,
		cancel:   cancel,
		stops:    make(map[string]context.CancelFunc),
	}
}

// Create registers a new NotStarted session and starts its countdown.
func (s *QuizService) Create(_ context.Context) domain.View {
	id := s.newID()
	session := NewSession(id, s.source, SessionOptions{
		Amount:          s.settings.Amount,
		QuestionSeconds: s.settings.QuestionSeconds,
		Category:        s.settings.Category,
		Difficulty:      s.settings.Difficulty,
		OnFinish:        s.recordResult,
		Logger:          s.logger,
	})
	s.sessions.Add(session)

	countdownCtx, stop := context.WithCancel(s.ctx)
	s.mu.Lock()
	s.stops[id] = stop
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		NewCountdown(session, s.settings.TickInterval).Run(countdownCtx)
	}()

	s.logger.Debug("session created", zap.String("session_id", id))
	return session.View()
}

// Start begins loading questions. The fetch outlives the caller's request
// and ends with the service or a restart.
func (s *QuizService) Start(_ context.Context, id string) (domain.View, error) {
	session, err := s.session(id)
	if err != nil {
		return domain.View{}, err
	}
	session.StartQuiz(s.ctx)
	return session.View(), nil
}

// Select records an answer for the active question.
func (s *QuizService) Select(_ context.Context, id, answer string) (domain.View, bool, error) {
	session, err := s.session(id)
	if err != nil {
		return domain.View{}, false, err
	}
	_, recorded := session.SelectAnswer(answer)
	return session.View(), recorded, nil
}

// Next advances (or skips) to the next question or the results.
func (s *QuizService) Next(_ context.Context, id string) (domain.View, error) {
	return s.apply(id, (*Session).NextQuestion)
}

// Previous steps back to the previous question.
func (s *QuizService) Previous(_ context.Context, id string) (domain.View, error) {
	return s.apply(id, (*Session).PreviousQuestion)
}

// Restart returns the session to NotStarted.
func (s *QuizService) Restart(_ context.Context, id string) (domain.View, error) {
	return s.apply(id, (*Session).Restart)
}

// View returns the current snapshot of a session.
func (s *QuizService) View(_ context.Context, id string) (domain.View, error) {
	session, err := s.session(id)
	if err != nil {
		return domain.View{}, err
	}
	return session.View(), nil
}

// Subscribe returns a channel that receives views for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, id string) (<-chan domain.View, func(), error) {
	session, err := s.session(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Result loads the stored summary of a finished session.
func (s *QuizService) Result(ctx context.Context, id string) (domain.Result, error) {
	return s.results.GetResult(ctx, id)
}

// Remove stops a session's countdown, closes it and forgets it.
func (s *QuizService) Remove(_ context.Context, id string) {
	s.mu.Lock()
	stop, ok := s.stops[id]
	delete(s.stops, id)
	s.mu.Unlock()
	if ok {
		stop()
	}

	if session, found := s.sessions.Get(id); found {
		session.Close()
		s.sessions.Delete(id)
	}
}

// Close removes every session and waits for their countdowns to stop.
func (s *QuizService) Close() {
	for _, session := range s.sessions.List() {
		s.Remove(context.Background(), session.ID())
	}
	s.cancel()
	s.wg.Wait()
}

func (s *QuizService) apply(id string, op func(*Session) bool) (domain.View, error) {
	session, err := s.session(id)
	if err != nil {
		return domain.View{}, err
	}
	op(session)
	return session.View(), nil
}

func (s *QuizService) session(id string) (*Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *QuizService) recordResult(result domain.Result) {
	s.logger.Info("session finished",
		zap.String("session_id", result.SessionID),
		zap.Int("score", result.Score),
		zap.Int("total", result.Total),
	)
	if err := s.results.SaveResult(s.ctx, result); err != nil {
		s.logger.Warn("save result failed", zap.String("session_id", result.SessionID), zap.Error(err))
	}
}
