package normalize

import (
	"math"
	"testing"
	"time"

	"github.com/Clark-Hu/content-rating/internal/domain"
)

func hourlyBuckets(tb testing.TB, means []float64, counts []int64) []domain.Bucket {
	tb.Helper()
	if len(means) != len(counts) {
		tb.Fatalf("means/counts length mismatch")
	}
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	buckets := make([]domain.Bucket, len(means))
	for i := range means {
		buckets[i] = domain.Bucket{
			Hour:  base.Add(time.Duration(i) * time.Hour),
			Count: counts[i],
			Mean:  means[i],
		}
	}
	return buckets
}

func TestFilterOutliers_ExcludesSurgeHour(t *testing.T) {
	// Three steady hours at 3,4,5 and one suspicious hour at 0.
	buckets := hourlyBuckets(t, []float64{3, 4, 5, 0}, []int64{1, 1, 1, 1})

	kept := FilterOutliers(buckets, 1.5)
	if len(kept) != 3 {
		t.Fatalf("kept %d buckets, want 3", len(kept))
	}
	for _, b := range kept {
		if b.Mean == 0 {
			t.Fatalf("surge bucket should have been excluded")
		}
	}

	mean, total := weightedMean(kept)
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if math.Abs(mean-4.0) > 1e-9 {
		t.Fatalf("weighted mean = %v, want 4.0", mean)
	}
}

func TestWeightedMean_IncludesAllBucketsUnfiltered(t *testing.T) {
	buckets := hourlyBuckets(t, []float64{3, 4, 5, 0}, []int64{1, 1, 1, 1})

	mean, total := weightedMean(buckets)
	if total != 4 {
		t.Fatalf("total = %d, want 4", total)
	}
	if math.Abs(mean-3.0) > 1e-9 {
		t.Fatalf("weighted mean = %v, want 3.0", mean)
	}
}

func TestFilterOutliers_ZeroStdDevKeepsEverything(t *testing.T) {
	buckets := hourlyBuckets(t, []float64{4, 4, 4}, []int64{2, 5, 1})

	kept := FilterOutliers(buckets, 2.0)
	if len(kept) != len(buckets) {
		t.Fatalf("kept %d buckets, want %d (no anomaly when all means agree)", len(kept), len(buckets))
	}
}

func TestFilterOutliers_DegenerateSets(t *testing.T) {
	if kept := FilterOutliers(nil, 2.0); len(kept) != 0 {
		t.Fatalf("empty input should stay empty")
	}

	single := hourlyBuckets(t, []float64{2.5}, []int64{7})
	kept := FilterOutliers(single, 2.0)
	if len(kept) != 1 {
		t.Fatalf("a single bucket can never be an outlier")
	}
}

func TestFilterOutliers_CountDoesNotWeighZScore(t *testing.T) {
	// The surge hour carries far more ratings, but each bucket still
	// contributes exactly one value to the z-score statistics.
	buckets := hourlyBuckets(t, []float64{4, 4.2, 4.1, 0.5}, []int64{3, 3, 3, 50})

	kept := FilterOutliers(buckets, 1.5)
	if len(kept) != 3 {
		t.Fatalf("kept %d buckets, want 3", len(kept))
	}

	mean, total := weightedMean(kept)
	if total != 9 {
		t.Fatalf("total = %d, want 9", total)
	}
	want := (4*3 + 4.2*3 + 4.1*3) / 9.0
	if math.Abs(mean-want) > 1e-9 {
		t.Fatalf("weighted mean = %v, want %v", mean, want)
	}
}
