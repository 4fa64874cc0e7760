package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/infra/postgres"
	infraredis "trivia-quiz/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestQuizFromPostgresBankEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedBank(t, ctx, pgURL, sampleBank())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := postgres.NewQuestionLoader(pool)
	loaded, err := loader.LoadPool(ctx, domain.PoolKey{Category: "9", Difficulty: "easy"})
	if err != nil {
		t.Fatalf("load pool: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 easy questions in category 9, got %d", len(loaded))
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	source := infraredis.NewQuestionPool(redisClient, loader, 5*time.Minute, nil)
	store := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	service := app.NewQuizService(store, store, source, app.Settings{
		Amount:          3,
		QuestionSeconds: 30,
		Category:        "9",
	}, nil)
	defer service.Close()

	id := service.Create(ctx).SessionID
	if _, err := service.Start(ctx, id); err != nil {
		t.Fatalf("start: %v", err)
	}
	view := waitPhase(t, service, id, domain.PhaseReady)
	if view.Total != 3 {
		t.Fatalf("expected 3 questions, got %d", view.Total)
	}

	for i := 0; i < view.Total; i++ {
		current, err := service.View(ctx, id)
		if err != nil {
			t.Fatalf("view: %v", err)
		}
		answer := correctAnswer(current.Question.Text)
		if _, recorded, err := service.Select(ctx, id, answer); err != nil || !recorded {
			t.Fatalf("select %q: recorded=%v err=%v", answer, recorded, err)
		}
		if _, err := service.Next(ctx, id); err != nil {
			t.Fatalf("next: %v", err)
		}
	}

	result, err := service.Result(ctx, id)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.Score != 3 || result.Total != 3 {
		t.Fatalf("expected 3/3, got %d/%d", result.Score, result.Total)
	}
	if n, _ := redisClient.Exists(ctx, "quiz:pool:9:any", "quiz:result:"+id).Result(); n != 2 {
		t.Fatalf("expected pool and result keys in redis, got %d", n)
	}
}

func waitPhase(t *testing.T, service *app.QuizService, id string, phase domain.Phase) domain.View {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		view, err := service.View(context.Background(), id)
		if err != nil {
			t.Fatalf("view: %v", err)
		}
		if view.Phase == phase {
			return view
		}
		if view.Phase == domain.PhaseError {
			t.Fatalf("session failed: %s", view.Error)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session %s never reached %s", id, phase)
	return domain.View{}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

type bankEntry struct {
	categoryID string
	question   domain.RawQuestion
}

func seedBank(t *testing.T, ctx context.Context, dsn string, entries []bankEntry) {
	t.Helper()
	db := postgres.OpenDB(dsn)
	defer db.Close()

	if _, err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	writer := postgres.NewQuestionWriter(db)
	for _, e := range entries {
		if _, err := writer.Save(ctx, e.categoryID, []domain.RawQuestion{e.question}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	// duplicates are skipped
	n, err := writer.Save(ctx, entries[0].categoryID, []domain.RawQuestion{entries[0].question})
	if err != nil || n != 0 {
		t.Fatalf("expected duplicate skipped, got n=%d err=%v", n, err)
	}
	count, err := writer.Count(ctx)
	if err != nil || count != len(entries) {
		t.Fatalf("expected %d stored questions, got %d (%v)", len(entries), count, err)
	}
}

func sampleBank() []bankEntry {
	q := func(difficulty, text, correct string) domain.RawQuestion {
		return domain.RawQuestion{
			Type:             "multiple",
			Category:         "General Knowledge",
			Difficulty:       difficulty,
			Question:         text,
			CorrectAnswer:    correct,
			IncorrectAnswers: []string{"wrong-a-" + correct, "wrong-b-" + correct, "wrong-c-" + correct},
		}
	}
	return []bankEntry{
		{"9", q("easy", "What colour is the sky on a clear day?", "Blue")},
		{"9", q("easy", "How many days are in a week?", "7")},
		{"9", q("medium", "What is the largest planet in the Solar System?", "Jupiter")},
		{"9", q("hard", "What is the smallest prime number?", "2")},
		{"11", q("easy", "Which film features the line &quot;I&#039;ll be back&quot;?", "The Terminator")},
	}
}

func correctAnswer(question string) string {
	for _, e := range sampleBank() {
		if e.question.Question == question {
			return e.question.CorrectAnswer
		}
	}
	return ""
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
