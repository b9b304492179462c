package domain

import (
	"math"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

func TestContent_ExactMean(t *testing.T) {
	empty := Content{}
	if empty.ExactMean() != nil {
		t.Fatalf("exact mean of unrated content should be nil")
	}

	c := Content{ScoreSum: 12, ScoreCount: 4}
	mean := c.ExactMean()
	if mean == nil || *mean != 3.0 {
		t.Fatalf("exact mean = %v, want 3.0", mean)
	}
}

func TestContent_Score(t *testing.T) {
	tests := []struct {
		name    string
		content Content
		want    *float64
	}{
		{
			name:    "no ratings",
			content: Content{},
			want:    nil,
		},
		{
			name:    "no normalized mean falls back to exact",
			content: Content{ScoreSum: 9, ScoreCount: 3},
			want:    floatPtr(3.0),
		},
		{
			name: "close means prefer exact",
			content: Content{
				ScoreSum: 9, ScoreCount: 3,
				NormalizedScoreMean: floatPtr(3.5),
			},
			want: floatPtr(3.0),
		},
		{
			name: "drifted means prefer normalized",
			content: Content{
				ScoreSum: 6, ScoreCount: 3,
				NormalizedScoreMean: floatPtr(4.5),
			},
			want: floatPtr(4.5),
		},
		{
			// Drift exactly MaxMeanDifference is not "< MaxMeanDifference",
			// so the normalized mean wins.
			name: "boundary drift prefers normalized",
			content: Content{
				ScoreSum: 12, ScoreCount: 4,
				NormalizedScoreMean: floatPtr(4.0),
			},
			want: floatPtr(4.0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.content.Score()
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("Score() = %v, want %v", got, tt.want)
			}
			if got != nil && math.Abs(*got-*tt.want) > 1e-9 {
				t.Fatalf("Score() = %v, want %v", *got, *tt.want)
			}
		})
	}
}

func TestValidateScore(t *testing.T) {
	for _, score := range []int{0, 1, 5} {
		if err := ValidateScore(score); err != nil {
			t.Fatalf("score %d should be valid: %v", score, err)
		}
	}
	for _, score := range []int{-1, 6, 100} {
		if err := ValidateScore(score); err == nil {
			t.Fatalf("score %d should be rejected", score)
		}
	}
}
