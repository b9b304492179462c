package domain

import (
	"math"
	"time"
)

// MaxMeanDifference is how far the exact mean may drift from the normalized
// mean before the resolver stops trusting it.
const MaxMeanDifference = 1.0

// Content represents a rateable content item together with its running
// score aggregate. ScoreSum and ScoreCount are maintained exclusively by
// the rating submission transaction; they always equal the sum and count
// of the current scores of every rating for this item.
type Content struct {
	ID                  string
	Title               string
	Body                string
	ScoreSum            int64
	ScoreCount          int64
	NormalizedScoreMean *float64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ExactMean returns ScoreSum/ScoreCount, or nil when the item has no ratings.
func (c Content) ExactMean() *float64 {
	if c.ScoreCount == 0 {
		return nil
	}
	mean := float64(c.ScoreSum) / float64(c.ScoreCount)
	return &mean
}

// Score resolves the value shown to callers. The exact mean wins while it
// stays within MaxMeanDifference of the normalized mean; once it drifts
// further (an unreconciled surge) the normalized mean is preferred until
// the next normalization pass.
func (c Content) Score() *float64 {
	exact := c.ExactMean()
	if exact == nil {
		return nil
	}
	if c.NormalizedScoreMean == nil {
		return exact
	}
	if math.Abs(*c.NormalizedScoreMean-*exact) < MaxMeanDifference {
		return exact
	}
	return c.NormalizedScoreMean
}
