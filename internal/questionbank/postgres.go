package questionbank

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/examrunner/internal/model"
	"github.com/stemsi/examrunner/internal/repository"
)

// PostgresSource reads question sets from the question_sets and questions tables.
type PostgresSource struct {
	repo *repository.QuestionSetRepository
}

// NewPostgresSource creates a new PostgresSource.
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{repo: repository.NewQuestionSetRepository(pool)}
}

// Load retrieves and validates a stored set.
func (s *PostgresSource) Load(ctx context.Context, setID string) (*model.QuestionSet, error) {
	if !ValidSetID(setID) {
		return nil, ErrSetNotFound
	}

	set, err := s.repo.GetByID(ctx, setID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSetNotFound
		}
		return nil, fmt.Errorf("get question set: %w", err)
	}

	if err := Validate(set); err != nil {
		return nil, err
	}
	return set, nil
}

// Import validates set and replaces its stored copy.
func Import(ctx context.Context, pool *pgxpool.Pool, set *model.QuestionSet) error {
	if !ValidSetID(set.ID) {
		return fmt.Errorf("%w: bad id %q", ErrInvalidSet, set.ID)
	}
	if err := Validate(set); err != nil {
		return err
	}
	if err := repository.NewQuestionSetRepository(pool).Replace(ctx, set); err != nil {
		return fmt.Errorf("import %s: %w", set.ID, err)
	}
	return nil
}
