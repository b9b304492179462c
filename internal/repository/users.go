package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UsersRepository manages the placeholder identities referenced by ratings.
type UsersRepository struct {
	pool *pgxpool.Pool
}

// Ensure creates an identity row for the supplied id if one does not exist.
// Identity management proper lives with the caller; the engine only needs a
// stable row for the ratings foreign key.
func (r *UsersRepository) Ensure(ctx context.Context, id string) error {
	const query = `
        INSERT INTO users (id)
        VALUES ($1)
        ON CONFLICT (id) DO NOTHING
    `
	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}
