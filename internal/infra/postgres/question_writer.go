package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"trivia-quiz/internal/domain"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type questionRow struct {
	bun.BaseModel `bun:"table:trivia_questions"`

	ID               int64    `bun:"id,pk,autoincrement"`
	CategoryID       string   `bun:"category_id"`
	Category         string   `bun:"category"`
	Type             string   `bun:"type"`
	Difficulty       string   `bun:"difficulty"`
	Question         string   `bun:"question"`
	CorrectAnswer    string   `bun:"correct_answer"`
	IncorrectAnswers []string `bun:"incorrect_answers,type:jsonb"`
}

// OpenDB opens a bun handle over pgdriver for dsn.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// QuestionWriter stores provider batches in the question bank.
type QuestionWriter struct {
	db *bun.DB
}

func NewQuestionWriter(db *bun.DB) *QuestionWriter {
	return &QuestionWriter{db: db}
}

// Save inserts the questions under categoryID, skipping questions already
// stored. It returns the number of new rows.
func (w *QuestionWriter) Save(ctx context.Context, categoryID string, raws []domain.RawQuestion) (int, error) {
	if len(raws) == 0 {
		return 0, nil
	}
	rows := make([]questionRow, 0, len(raws))
	for _, raw := range raws {
		typ := raw.Type
		if typ == "" {
			typ = "multiple"
		}
		rows = append(rows, questionRow{
			CategoryID:       categoryID,
			Category:         raw.Category,
			Type:             typ,
			Difficulty:       raw.Difficulty,
			Question:         raw.Question,
			CorrectAnswer:    raw.CorrectAnswer,
			IncorrectAnswers: raw.IncorrectAnswers,
		})
	}

	res, err := w.db.NewInsert().
		Model(&rows).
		On("CONFLICT (question) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("save questions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("save questions: %w", err)
	}
	return int(n), nil
}

// Count returns the number of stored questions.
func (w *QuestionWriter) Count(ctx context.Context) (int, error) {
	return w.db.NewSelect().Model((*questionRow)(nil)).Count(ctx)
}
