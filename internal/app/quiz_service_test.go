package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/infra/memory"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStartAnswerAndFinish(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()
	defer service.Close()

	view := service.Create(ctx)
	if view.Phase != domain.PhaseNotStarted {
		t.Fatalf("expected not started, got %s", view.Phase)
	}
	if _, err := service.Start(ctx, view.SessionID); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitPhase(t, service, view.SessionID, domain.PhaseReady)

	view, recorded, err := service.Select(ctx, view.SessionID, "4")
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if !recorded || view.Score != 1 {
		t.Fatalf("expected recorded correct answer, got recorded=%v score=%d", recorded, view.Score)
	}

	view, err = service.Next(ctx, view.SessionID)
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if view.Phase != domain.PhaseResults {
		t.Fatalf("expected results, got %s", view.Phase)
	}

	result, err := service.Result(ctx, view.SessionID)
	if err != nil {
		t.Fatalf("result failed: %v", err)
	}
	if result.Score != 1 || result.Total != 1 {
		t.Fatalf("expected 1/1, got %d/%d", result.Score, result.Total)
	}
	if _, ok := store.Get(view.SessionID); !ok {
		t.Fatalf("expected session still registered")
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	defer service.Close()

	id := service.Create(ctx).SessionID
	ch, cancel, err := service.Subscribe(ctx, id)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	<-ch // initial snapshot

	if _, err := service.Start(ctx, id); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	timeout := time.After(2 * time.Second)
	for {
		select {
		case update := <-ch:
			if update.Phase == domain.PhaseReady {
				if update.Question == nil || len(update.Question.Options) != 3 {
					t.Fatalf("expected question with 3 options, got %+v", update.Question)
				}
				return
			}
		case <-timeout:
			t.Fatal("no ready update")
		}
	}
}

func TestUnknownSession(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	defer service.Close()

	if _, err := service.Start(ctx, "missing"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}
	if _, _, err := service.Select(ctx, "missing", "4"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}
	if _, err := service.Result(ctx, "missing"); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected result error, got %v", err)
	}
}

func TestRemoveForgetsSession(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()
	defer service.Close()

	id := service.Create(ctx).SessionID
	service.Remove(ctx, id)
	if _, ok := store.Get(id); ok {
		t.Fatalf("expected session removed")
	}
	if _, err := service.View(ctx, id); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}
}

func TestFetchFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	store := memory.NewSessionStore()
	service := app.NewQuizService(store, store, failingSource{}, app.Settings{Amount: 1}, zap.New(core))
	defer service.Close()

	id := service.Create(ctx).SessionID
	if _, err := service.Start(ctx, id); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitPhase(t, service, id, domain.PhaseError)

	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterMessage("question fetch failed").Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected fetch failure logged, got %d entries", logs.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
	entry := logs.FilterMessage("question fetch failed").All()[0]
	if entry.ContextMap()["session_id"] != id {
		t.Fatalf("expected session_id %s, got %v", id, entry.ContextMap()["session_id"])
	}
}

type failingSource struct{}

func (failingSource) FetchQuestions(context.Context, domain.BatchRequest) ([]domain.RawQuestion, error) {
	return nil, domain.ErrFetchFailed
}

func waitPhase(t *testing.T, service *app.QuizService, id string, phase domain.Phase) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		view, err := service.View(context.Background(), id)
		if err != nil {
			t.Fatalf("view failed: %v", err)
		}
		if view.Phase == phase {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session %s never reached %s", id, phase)
}

func newTestService() (*app.QuizService, *memory.SessionStore) {
	store := memory.NewSessionStore()
	source := memory.NewQuestionPool(memory.NewStaticQuestionLoader([]domain.RawQuestion{
		{
			Category:         "Mathematics",
			Difficulty:       "easy",
			Question:         "What is 2 + 2?",
			CorrectAnswer:    "4",
			IncorrectAnswers: []string{"3", "5"},
		},
	}), 5*time.Minute, nil)
	service := app.NewQuizService(store, store, source, app.Settings{
		Amount:          1,
		QuestionSeconds: 30,
	}, nil)
	return service, store
}
