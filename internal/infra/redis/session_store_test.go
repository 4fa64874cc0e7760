package redis

import (
	"context"
	"testing"
	"time"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	source := memory.NewQuestionPool(memory.NewStaticQuestionLoader(sampleQuestions()), time.Minute, nil)
	store.Add(app.NewSession("session-1", source, app.SessionOptions{}))
	if !mr.Exists("quiz:session:session-1") {
		t.Fatalf("expected redis key to be set")
	}
	if _, ok := store.Get("session-1"); !ok {
		t.Fatalf("expected local session")
	}

	store.Delete("session-1")
	if mr.Exists("quiz:session:session-1") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestSessionStoreKeepsResults(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	ctx := context.Background()

	if _, err := store.GetResult(ctx, "session-1"); err != domain.ErrResultNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	want := domain.Result{
		SessionID: "session-1",
		Score:     1,
		Total:     2,
		Items: []domain.ResultItem{
			{Question: "What is 2 + 2?", Answered: true, Selected: "4", Correct: "4", IsCorrect: true},
			{Question: "Who directed &quot;Jaws&quot;?", Selected: domain.NotAnswered, Correct: "Steven Spielberg"},
		},
		FinishedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := store.SaveResult(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL("quiz:result:session-1"); ttl != time.Minute {
		t.Fatalf("expected result ttl, got %v", ttl)
	}

	got, err := store.GetResult(ctx, "session-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Score != want.Score || len(got.Items) != 2 || got.Items[1].Selected != domain.NotAnswered || !got.FinishedAt.Equal(want.FinishedAt) {
		t.Fatalf("unexpected result %+v", got)
	}
}
