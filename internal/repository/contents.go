package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/content-rating/internal/domain"
)

// ContentsRepository provides persistence helpers for content items.
type ContentsRepository struct {
	pool *pgxpool.Pool
}

const contentColumns = `
    id,
    title,
    body,
    score_sum,
    score_count,
    normalized_score_mean,
    created_at,
    updated_at
`

// ContentCreateParams bundles the fields required to create a content item.
type ContentCreateParams struct {
	Title string
	Body  string
}

// ContentListFilters encapsulates search and pagination options.
type ContentListFilters struct {
	Query  *string
	Limit  int
	Cursor *ContentCursor
}

// ContentCursor allows stable pagination by created_at/id.
type ContentCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

// ContentListResult returns the paginated payload.
type ContentListResult struct {
	Items      []domain.Content
	NextCursor *string
}

// Create inserts a new content item. The aggregate columns start at zero and
// are only ever touched by the rating submission transaction afterwards.
func (r *ContentsRepository) Create(ctx context.Context, params ContentCreateParams) (domain.Content, error) {
	query := fmt.Sprintf(`
        INSERT INTO contents (title, body)
        VALUES ($1,$2)
        RETURNING %s
    `, contentColumns)

	row := r.pool.QueryRow(ctx, query, params.Title, params.Body)
	return scanContent(row)
}

// GetByID fetches a content item by its identifier.
func (r *ContentsRepository) GetByID(ctx context.Context, id string) (domain.Content, error) {
	query := fmt.Sprintf(`SELECT %s FROM contents WHERE id = $1`, contentColumns)
	row := r.pool.QueryRow(ctx, query, id)
	content, err := scanContent(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Content{}, ErrNotFound
		}
		return domain.Content{}, err
	}
	return content, nil
}

// List returns content items matching the provided filters.
func (r *ContentsRepository) List(ctx context.Context, filters ContentListFilters) (ContentListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = 10
	} else if filters.Limit > 100 {
		filters.Limit = 100
	}

	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Query != nil && strings.TrimSpace(*filters.Query) != "" {
		q := "%" + strings.TrimSpace(*filters.Query) + "%"
		where = append(where, fmt.Sprintf("title ILIKE %s", arg(q)))
	}
	if filters.Cursor != nil {
		cursorCreated := arg(filters.Cursor.CreatedAt)
		cursorID := arg(filters.Cursor.ID)
		where = append(where, fmt.Sprintf("(created_at, id) > (%s, %s)", cursorCreated, cursorID))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(contentColumns)
	queryBuilder.WriteString(" FROM contents")

	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY created_at ASC, id ASC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", filters.Limit))

	rows, err := r.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return ContentListResult{}, err
	}
	defer rows.Close()

	items := make([]domain.Content, 0)
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return ContentListResult{}, err
		}
		items = append(items, content)
	}
	if err := rows.Err(); err != nil {
		return ContentListResult{}, err
	}

	var nextCursor *string
	if len(items) == filters.Limit {
		last := items[len(items)-1]
		cursor := ContentCursor{CreatedAt: last.CreatedAt, ID: last.ID}
		token, err := encodeCursor(cursor)
		if err != nil {
			return ContentListResult{}, err
		}
		nextCursor = &token
	}

	return ContentListResult{Items: items, NextCursor: nextCursor}, nil
}

// Candidates returns ids of content items whose normalized mean is missing or
// has drifted more than threshold away from the exact mean. Keyset iteration
// on id keeps the read lazy and restartable; pass the last id of the previous
// batch as afterID, or nil to start over.
func (r *ContentsRepository) Candidates(ctx context.Context, threshold float64, afterID *string, limit int) ([]string, error) {
	const query = `
        SELECT id
        FROM contents
        WHERE (normalized_score_mean IS NULL
               OR abs(score_sum::float8 / NULLIF(score_count, 0) - normalized_score_mean) > $1)
          AND ($2::uuid IS NULL OR id > $2::uuid)
        ORDER BY id
        LIMIT $3
    `

	rows, err := r.pool.Query(ctx, query, threshold, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list normalization candidates: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateNormalizedMean persists a freshly computed normalized mean. The write
// only lands while the stored value still equals prev, so overlapping
// normalization passes for the same content cannot clobber each other; the
// caller learns about a lost race through the returned bool.
func (r *ContentsRepository) UpdateNormalizedMean(ctx context.Context, id string, mean, prev *float64) (bool, error) {
	const query = `
        UPDATE contents
        SET normalized_score_mean = $2, updated_at = now()
        WHERE id = $1 AND normalized_score_mean IS NOT DISTINCT FROM $3
    `
	tag, err := r.pool.Exec(ctx, query, id, mean, prev)
	if err != nil {
		return false, fmt.Errorf("update normalized mean: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanContent(row pgx.Row) (domain.Content, error) {
	var content domain.Content
	err := row.Scan(
		&content.ID,
		&content.Title,
		&content.Body,
		&content.ScoreSum,
		&content.ScoreCount,
		&content.NormalizedScoreMean,
		&content.CreatedAt,
		&content.UpdatedAt,
	)
	if err != nil {
		return domain.Content{}, err
	}
	return content, nil
}

func encodeCursor(c ContentCursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// DecodeCursor parses a cursor token into a ContentCursor.
func DecodeCursor(token string) (*ContentCursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var cursor ContentCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}
	return &cursor, nil
}
