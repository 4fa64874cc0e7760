package cli

import (
	"context"
	"testing"

	"trivia-quiz/internal/config"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/infra/memory"
	"trivia-quiz/internal/infra/opentdb"
	infraredis "trivia-quiz/internal/infra/redis"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildDepsInMemory(t *testing.T) {
	cfg := config.Default()
	cfg.Provider.Kind = config.ProviderStatic

	d, err := buildDeps(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer d.Close()

	assert.IsType(t, &memory.QuestionPool{}, d.source)
	assert.IsType(t, &memory.SessionStore{}, d.sessions)

	batch, err := d.source.FetchQuestions(context.Background(), domain.BatchRequest{Amount: 10})
	require.NoError(t, err)
	assert.Len(t, batch, 10)
}

func TestBuildDepsWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Provider.Kind = config.ProviderStatic
	cfg.Redis.Addr = mr.Addr()

	d, err := buildDeps(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer d.Close()

	assert.IsType(t, &infraredis.QuestionPool{}, d.source)
	assert.IsType(t, &infraredis.SessionStore{}, d.results)
}

func TestBuildDepsOpenTDB(t *testing.T) {
	d, err := buildDeps(context.Background(), config.Default(), zap.NewNop())
	require.NoError(t, err)
	defer d.Close()
	assert.IsType(t, &opentdb.Client{}, d.source)
}

func TestSampleQuestionsAreValid(t *testing.T) {
	questions, err := domain.NormalizeAll(sampleQuestions())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(questions), 10)
}
