package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/content-rating/internal/domain"
)

// RatingsRepository owns the rating submission protocol and the derived
// reads (hourly buckets, per-user scores) the rest of the engine builds on.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

// SubmitParams captures one user's score submission for a content item.
type SubmitParams struct {
	UserID    string
	ContentID string
	Score     int
	ScoredAt  time.Time
}

// Submit upserts a rating and maintains the ledger and the content aggregate
// in a single transaction:
//
//  1. lock the caller's existing rating row, if any (FOR UPDATE), which
//     serializes concurrent submissions from the same user on the same item;
//  2. insert or overwrite the rating;
//  3. append an ADD or UPDATE ledger event and apply its aggregate delta,
//     or append nothing when the score did not change.
//
// Everything commits or rolls back together. The bool reports whether the
// rating was newly created. Out-of-range scores fail with
// domain.ErrInvalidScore before any write.
func (r *RatingsRepository) Submit(ctx context.Context, params SubmitParams) (domain.Rating, bool, error) {
	if err := domain.ValidateScore(params.Score); err != nil {
		return domain.Rating{}, false, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Rating{}, false, fmt.Errorf("begin submit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	prior, err := lockCurrentScore(ctx, tx, params.UserID, params.ContentID)
	if err != nil {
		return domain.Rating{}, false, err
	}

	var rating domain.Rating
	created := false
	if prior == nil {
		const insert = `
            INSERT INTO ratings (user_id, content_id, score, scored_at)
            VALUES ($1,$2,$3,$4)
            ON CONFLICT (user_id, content_id) DO NOTHING
            RETURNING id, user_id, content_id, score, scored_at, created_at, updated_at
        `
		err = tx.QueryRow(ctx, insert, params.UserID, params.ContentID, params.Score, params.ScoredAt).Scan(
			&rating.ID,
			&rating.UserID,
			&rating.ContentID,
			&rating.Score,
			&rating.ScoredAt,
			&rating.CreatedAt,
			&rating.UpdatedAt,
		)
		switch {
		case err == nil:
			created = true
		case err == pgx.ErrNoRows:
			// A concurrent first submission beat us between the lock attempt
			// and the insert. Lock the row it left behind and fall through to
			// the update path so the ledger records one ADD, not two.
			prior, err = lockCurrentScore(ctx, tx, params.UserID, params.ContentID)
			if err != nil {
				return domain.Rating{}, false, err
			}
			if prior == nil {
				return domain.Rating{}, false, fmt.Errorf("ratings: rating vanished during submission for user %s", params.UserID)
			}
		default:
			return domain.Rating{}, false, fmt.Errorf("insert rating: %w", err)
		}
	}

	if !created {
		const update = `
            UPDATE ratings
            SET score = $3, scored_at = $4, updated_at = now()
            WHERE user_id = $1 AND content_id = $2
            RETURNING id, user_id, content_id, score, scored_at, created_at, updated_at
        `
		err = tx.QueryRow(ctx, update, params.UserID, params.ContentID, params.Score, params.ScoredAt).Scan(
			&rating.ID,
			&rating.UserID,
			&rating.ContentID,
			&rating.Score,
			&rating.ScoredAt,
			&rating.CreatedAt,
			&rating.UpdatedAt,
		)
		if err != nil {
			return domain.Rating{}, false, fmt.Errorf("update rating: %w", err)
		}
	}

	switch {
	case created:
		event := domain.ChangeEvent{
			ContentID: rating.ContentID,
			RatingID:  rating.ID,
			Kind:      domain.EventAdd,
			NewScore:  rating.Score,
		}
		if err := applyEvent(ctx, tx, event); err != nil {
			return domain.Rating{}, false, err
		}
	case *prior != rating.Score:
		old := *prior
		event := domain.ChangeEvent{
			ContentID: rating.ContentID,
			RatingID:  rating.ID,
			Kind:      domain.EventUpdate,
			OldScore:  &old,
			NewScore:  rating.Score,
		}
		if err := applyEvent(ctx, tx, event); err != nil {
			return domain.Rating{}, false, err
		}
	default:
		// Same score resubmitted: no ledger entry, no aggregate change.
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Rating{}, false, fmt.Errorf("commit submit tx: %w", err)
	}
	return rating, created, nil
}

// lockCurrentScore takes the exclusive row lock on the caller's existing
// rating, returning its current score, or nil when no rating exists yet.
func lockCurrentScore(ctx context.Context, tx pgx.Tx, userID, contentID string) (*int, error) {
	var score int
	err := tx.QueryRow(ctx,
		`SELECT score FROM ratings WHERE user_id = $1 AND content_id = $2 FOR UPDATE`,
		userID, contentID,
	).Scan(&score)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock rating row: %w", err)
	}
	return &score, nil
}

// applyEvent appends one ledger entry and applies its aggregate delta inside
// the submission transaction. The delta is pushed into SQL (score_sum =
// score_sum + Δ) so concurrent submissions from different users never lose
// updates. An event kind outside the closed ADD/UPDATE set is an internal
// invariant violation and rolls the transaction back.
func applyEvent(ctx context.Context, tx pgx.Tx, event domain.ChangeEvent) error {
	const insert = `
        INSERT INTO rating_events (content_id, rating_id, kind, old_score, new_score)
        VALUES ($1,$2,$3,$4,$5)
    `
	if _, err := tx.Exec(ctx, insert, event.ContentID, event.RatingID, string(event.Kind), event.OldScore, event.NewScore); err != nil {
		return fmt.Errorf("insert rating event: %w", err)
	}

	var err error
	switch event.Kind {
	case domain.EventAdd:
		_, err = tx.Exec(ctx,
			`UPDATE contents SET score_sum = score_sum + $2, score_count = score_count + 1, updated_at = now() WHERE id = $1`,
			event.ContentID, event.NewScore)
	case domain.EventUpdate:
		if event.OldScore == nil {
			return fmt.Errorf("ratings: UPDATE event for content %s has no old score", event.ContentID)
		}
		_, err = tx.Exec(ctx,
			`UPDATE contents SET score_sum = score_sum + $2, updated_at = now() WHERE id = $1`,
			event.ContentID, event.NewScore-*event.OldScore)
	default:
		return fmt.Errorf("ratings: event kind %q is not valid", event.Kind)
	}
	if err != nil {
		return fmt.Errorf("apply %s event: %w", event.Kind, err)
	}
	return nil
}

// Get retrieves a rating for a specific user/content combination.
func (r *RatingsRepository) Get(ctx context.Context, userID, contentID string) (domain.Rating, error) {
	const query = `
        SELECT id, user_id, content_id, score, scored_at, created_at, updated_at
        FROM ratings
        WHERE user_id = $1 AND content_id = $2
    `
	var rating domain.Rating
	err := r.pool.QueryRow(ctx, query, userID, contentID).Scan(
		&rating.ID,
		&rating.UserID,
		&rating.ContentID,
		&rating.Score,
		&rating.ScoredAt,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, err
	}
	return rating, nil
}

// ScoresForUser returns one user's current scores keyed by content id, for
// the given set of content items.
func (r *RatingsRepository) ScoresForUser(ctx context.Context, userID string, contentIDs []string) (map[string]int, error) {
	if len(contentIDs) == 0 {
		return map[string]int{}, nil
	}
	const query = `
        SELECT content_id, score
        FROM ratings
        WHERE user_id = $1 AND content_id = ANY($2)
    `
	rows, err := r.pool.Query(ctx, query, userID, contentIDs)
	if err != nil {
		return nil, fmt.Errorf("scores for user: %w", err)
	}
	defer rows.Close()

	scores := make(map[string]int, len(contentIDs))
	for rows.Next() {
		var contentID string
		var score int
		if err := rows.Scan(&contentID, &score); err != nil {
			return nil, err
		}
		scores[contentID] = score
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}

// BucketsByHour groups a content item's ratings into hour-truncated buckets,
// ordered by hour ascending. Buckets are derived on demand; nothing is
// persisted.
func (r *RatingsRepository) BucketsByHour(ctx context.Context, contentID string) ([]domain.Bucket, error) {
	const query = `
        SELECT date_trunc('hour', scored_at) AS hour,
               COUNT(*)::int8 AS score_count,
               AVG(score)::float8 AS score_mean
        FROM ratings
        WHERE content_id = $1
        GROUP BY 1
        ORDER BY 1
    `
	rows, err := r.pool.Query(ctx, query, contentID)
	if err != nil {
		return nil, fmt.Errorf("bucket ratings by hour: %w", err)
	}
	defer rows.Close()

	var buckets []domain.Bucket
	for rows.Next() {
		var b domain.Bucket
		if err := rows.Scan(&b.Hour, &b.Count, &b.Mean); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buckets, nil
}

// Events returns a content item's ledger entries in append order.
func (r *RatingsRepository) Events(ctx context.Context, contentID string) ([]domain.ChangeEvent, error) {
	const query = `
        SELECT id, content_id, rating_id, kind, old_score, new_score, occurred_at
        FROM rating_events
        WHERE content_id = $1
        ORDER BY id
    `
	rows, err := r.pool.Query(ctx, query, contentID)
	if err != nil {
		return nil, fmt.Errorf("list rating events: %w", err)
	}
	defer rows.Close()

	var events []domain.ChangeEvent
	for rows.Next() {
		var event domain.ChangeEvent
		var kind string
		if err := rows.Scan(&event.ID, &event.ContentID, &event.RatingID, &kind, &event.OldScore, &event.NewScore, &event.OccurredAt); err != nil {
			return nil, err
		}
		event.Kind = domain.EventKind(kind)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
