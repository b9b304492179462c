package normalize

import (
	"context"
	"fmt"
	"log"

	"github.com/Clark-Hu/content-rating/internal/repository"
)

// Normalizer recomputes anomaly-resistant score means for content items.
type Normalizer struct {
	repo       *repository.Repository
	logger     *log.Logger
	zThreshold float64
}

// New constructs a Normalizer. A non-positive zThreshold falls back to
// DefaultZThreshold.
func New(repo *repository.Repository, logger *log.Logger, zThreshold float64) *Normalizer {
	if logger == nil {
		logger = log.Default()
	}
	if zThreshold <= 0 {
		zThreshold = DefaultZThreshold
	}
	return &Normalizer{repo: repo, logger: logger, zThreshold: zThreshold}
}

// NormalizedMean computes the outlier-filtered, count-weighted mean of a
// content item's hourly buckets. When filtering leaves no ratings behind it
// falls back to the exact mean, which is nil for an unrated item. The read
// takes no locks; a result computed from a slightly stale snapshot is
// tolerated by the score resolver.
func (n *Normalizer) NormalizedMean(ctx context.Context, contentID string) (*float64, error) {
	buckets, err := n.repo.Ratings.BucketsByHour(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("bucket ratings: %w", err)
	}

	kept := FilterOutliers(buckets, n.zThreshold)
	mean, total := weightedMean(kept)
	if total == 0 {
		content, err := n.repo.Contents.GetByID(ctx, contentID)
		if err != nil {
			return nil, fmt.Errorf("load content for fallback mean: %w", err)
		}
		return content.ExactMean(), nil
	}
	return &mean, nil
}

// Normalize recomputes one content item's normalized mean and persists it
// with a compare-and-swap against the value observed at the start. Losing
// the swap to a concurrent pass discards this result and keeps the winner's;
// any error leaves the stored value untouched, so the item simply remains a
// candidate for a later pass.
func (n *Normalizer) Normalize(ctx context.Context, contentID string) error {
	content, err := n.repo.Contents.GetByID(ctx, contentID)
	if err != nil {
		return fmt.Errorf("load content %s: %w", contentID, err)
	}

	mean, err := n.NormalizedMean(ctx, contentID)
	if err != nil {
		return fmt.Errorf("compute normalized mean for %s: %w", contentID, err)
	}

	swapped, err := n.repo.Contents.UpdateNormalizedMean(ctx, contentID, mean, content.NormalizedScoreMean)
	if err != nil {
		return fmt.Errorf("persist normalized mean for %s: %w", contentID, err)
	}
	if !swapped {
		n.logger.Printf("normalize: content %s changed since snapshot, keeping stored mean", contentID)
		return nil
	}
	n.logger.Printf("normalize: content %s normalized mean updated to %s", contentID, formatMean(mean))
	return nil
}

func formatMean(mean *float64) string {
	if mean == nil {
		return "<none>"
	}
	return fmt.Sprintf("%.4f", *mean)
}
