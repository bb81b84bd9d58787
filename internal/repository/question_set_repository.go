package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/examrunner/internal/model"
)

// QuestionSetRepository handles question set data access.
type QuestionSetRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionSetRepository creates a new QuestionSetRepository.
func NewQuestionSetRepository(pool *pgxpool.Pool) *QuestionSetRepository {
	return &QuestionSetRepository{pool: pool}
}

// GetByID retrieves a set with its questions ordered by order_num.
// Returns pgx.ErrNoRows when the set does not exist.
func (r *QuestionSetRepository) GetByID(ctx context.Context, id string) (*model.QuestionSet, error) {
	set := &model.QuestionSet{ID: id}
	err := r.pool.QueryRow(ctx,
		`SELECT title FROM question_sets WHERE id = $1`, id,
	).Scan(&set.Title)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT prompt, options, answer
		 FROM questions WHERE set_id = $1
		 ORDER BY order_num`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			q       model.Question
			options []byte
		)
		if err := rows.Scan(&q.Prompt, &options, &q.Answer); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("options of question %d: %w", len(set.Questions), err)
		}
		set.Questions = append(set.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	set.Reindex()
	return set, nil
}

// Replace upserts the set row and rewrites its questions in one transaction.
func (r *QuestionSetRepository) Replace(ctx context.Context, set *model.QuestionSet) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO question_sets (id, title)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE
		 SET title = EXCLUDED.title, updated_at = NOW()`,
		set.ID, set.Title,
	)
	if err != nil {
		return fmt.Errorf("upsert question set: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE set_id = $1`, set.ID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}

	batch := &pgx.Batch{}
	for i, q := range set.Questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		batch.Queue(
			`INSERT INTO questions (set_id, prompt, options, answer, order_num)
			 VALUES ($1, $2, $3, $4, $5)`,
			set.ID, q.Prompt, options, q.Answer, i,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}

	return tx.Commit(ctx)
}
