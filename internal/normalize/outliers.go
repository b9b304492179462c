package normalize

import (
	"math"

	"github.com/Clark-Hu/content-rating/internal/domain"
)

// DefaultZThreshold is the z-score above which a bucket mean counts as an
// anomaly.
const DefaultZThreshold = 2.0

// zScores returns each bucket mean's z-score against the unweighted mean and
// population standard deviation of the bucket means. Each bucket contributes
// a single value regardless of its count. A zero standard deviation (fewer
// than two distinct means) yields all-zero z-scores rather than a division
// error.
func zScores(buckets []domain.Bucket) []float64 {
	if len(buckets) == 0 {
		return nil
	}

	var sum float64
	for _, b := range buckets {
		sum += b.Mean
	}
	mean := sum / float64(len(buckets))

	var variance float64
	for _, b := range buckets {
		d := b.Mean - mean
		variance += d * d
	}
	variance /= float64(len(buckets))
	stdDev := math.Sqrt(variance)

	scores := make([]float64, len(buckets))
	if stdDev == 0 {
		return scores
	}
	for i, b := range buckets {
		scores[i] = (b.Mean - mean) / stdDev
	}
	return scores
}

// FilterOutliers keeps bucket i iff |z_i| <= zThreshold, dropping hours whose
// mean deviates too far from the rest of the content's hours.
func FilterOutliers(buckets []domain.Bucket, zThreshold float64) []domain.Bucket {
	scores := zScores(buckets)
	kept := make([]domain.Bucket, 0, len(buckets))
	for i, b := range buckets {
		if math.Abs(scores[i]) <= zThreshold {
			kept = append(kept, b)
		}
	}
	return kept
}

// weightedMean returns the count-weighted mean of the buckets and the total
// rating count behind it.
func weightedMean(buckets []domain.Bucket) (float64, int64) {
	var total int64
	var weighted float64
	for _, b := range buckets {
		weighted += b.Mean * float64(b.Count)
		total += b.Count
	}
	if total == 0 {
		return 0, 0
	}
	return weighted / float64(total), total
}
