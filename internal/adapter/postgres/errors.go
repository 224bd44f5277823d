package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/heartmarshall/deck-migrator/internal/domain"
)

// MapError converts pgx errors about the document at path into domain errors.
// Context cancellation and deadlines pass through unmapped.
func MapError(err error, path string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("document %s: %w", path, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("document %s: %w", path, domain.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("document %s: %w", path, domain.ErrAlreadyExists)
		case "23514", "22P02": // check_violation, invalid_text_representation
			return fmt.Errorf("document %s: %w", path, domain.ErrValidation)
		}
	}

	return fmt.Errorf("document %s: %w", path, err)
}
