package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"trivia-quiz/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionLoader reads question pools from the trivia_questions bank.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

// LoadPool returns every stored question matching the key. Empty key fields
// match all rows.
func (l *QuestionLoader) LoadPool(ctx context.Context, key domain.PoolKey) ([]domain.RawQuestion, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT category, type, difficulty, question, correct_answer, incorrect_answers
		FROM trivia_questions
		WHERE ($1 = '' OR category_id = $1) AND ($2 = '' OR difficulty = $2)
		ORDER BY id`, key.Category, key.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("load pool %s: %w", key, err)
	}
	defer rows.Close()

	var out []domain.RawQuestion
	for rows.Next() {
		var (
			q         domain.RawQuestion
			incorrect []byte
		)
		if err := rows.Scan(&q.Category, &q.Type, &q.Difficulty, &q.Question, &q.CorrectAnswer, &incorrect); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(incorrect, &q.IncorrectAnswers); err != nil {
			return nil, fmt.Errorf("unmarshal incorrect answers: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load pool %s: %w", key, err)
	}
	return out, nil
}
