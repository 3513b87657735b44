package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/gtil/internal/storage"
)

// ErrDuplicateScore is returned when an entry id is recorded twice.
var ErrDuplicateScore = errors.New("high score already recorded")

// HighScoreRepository stores the high-score table.
type HighScoreRepository struct {
	db *pgxpool.Pool
}

// NewHighScoreRepository creates a HighScoreRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewHighScoreRepository(db *pgxpool.Pool) *HighScoreRepository {
	return &HighScoreRepository{db: db}
}

// Record inserts entry and trims the table to its best storage.MaxHighScores
// rows in one transaction.
//
// Postcondition: Returns ErrDuplicateScore if entry.ID already exists.
func (r *HighScoreRepository) Record(ctx context.Context, entry storage.HighScore) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO high_scores (id, score, char_type, recorded_at)
			 VALUES ($1, $2, $3, $4)`,
			entry.ID, entry.Score, entry.CharType, entry.Date,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return ErrDuplicateScore
			}
			return fmt.Errorf("inserting high score: %w", err)
		}
		_, err = tx.Exec(ctx,
			`DELETE FROM high_scores WHERE id NOT IN (
				SELECT id FROM high_scores
				ORDER BY score DESC, recorded_at ASC
				LIMIT $1)`,
			storage.MaxHighScores,
		)
		if err != nil {
			return fmt.Errorf("trimming high scores: %w", err)
		}
		return nil
	})
}

// Top returns up to n entries, best first.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *HighScoreRepository) Top(ctx context.Context, n int) ([]storage.HighScore, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, score, char_type, recorded_at
		 FROM high_scores
		 ORDER BY score DESC, recorded_at ASC
		 LIMIT $1`,
		max(n, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("listing high scores: %w", err)
	}
	defer rows.Close()

	var out []storage.HighScore
	for rows.Next() {
		var hs storage.HighScore
		if err := rows.Scan(&hs.ID, &hs.Score, &hs.CharType, &hs.Date); err != nil {
			return nil, fmt.Errorf("scanning high score: %w", err)
		}
		out = append(out, hs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating high scores: %w", err)
	}
	return out, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
