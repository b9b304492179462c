package domain

import (
	"errors"
	"time"
)

// Score bounds for a rating.
const (
	MinScore = 0
	MaxScore = 5
)

// ErrInvalidScore is returned when a submitted score falls outside [MinScore, MaxScore].
var ErrInvalidScore = errors.New("domain: score must be between 0 and 5")

// ValidateScore rejects out-of-range scores before anything is persisted.
func ValidateScore(score int) error {
	if score < MinScore || score > MaxScore {
		return ErrInvalidScore
	}
	return nil
}

// Rating is a single user's current score for one content item. At most one
// row exists per (user, content) pair; resubmissions overwrite it in place.
type Rating struct {
	ID        int64
	UserID    string
	ContentID string
	Score     int
	ScoredAt  time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EventKind is the closed set of ledger event types.
type EventKind string

const (
	// EventAdd records a rating's first submission.
	EventAdd EventKind = "ADD"
	// EventUpdate records a score change on an existing rating.
	EventUpdate EventKind = "UPDATE"
)

// ChangeEvent is one append-only ledger entry. Exactly one ADD exists per
// rating; every later score change produces one UPDATE whose OldScore is the
// immediately preceding score. A resubmission with an unchanged score
// produces no event.
type ChangeEvent struct {
	ID         int64
	ContentID  string
	RatingID   int64
	Kind       EventKind
	OldScore   *int
	NewScore   int
	OccurredAt time.Time
}

// Bucket groups one content item's ratings by the hour they were recorded.
// Buckets are derived on demand and never persisted.
type Bucket struct {
	Hour  time.Time
	Count int64
	Mean  float64
}
