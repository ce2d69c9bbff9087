// Package stabilize estimates per-stratum category prevalence with
// percentile bootstrap confidence intervals.
package stabilize

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/ppiankov/experia/internal/model"
)

// Bootstrap resamples presence flags with replacement and returns both the
// observed and the resampled mean with a percentile interval. It returns nil
// when there are no flags.
func Bootstrap(flags []bool, iterations int, alpha float64, rng *rand.Rand) *model.RateInterval {
	n := len(flags)
	if n == 0 || iterations <= 0 {
		return nil
	}

	hits := 0
	for _, f := range flags {
		if f {
			hits++
		}
	}

	means := make([]float64, iterations)
	total := 0.0
	for b := range means {
		k := 0
		for i := 0; i < n; i++ {
			if flags[rng.IntN(n)] {
				k++
			}
		}
		means[b] = float64(k) / float64(n)
		total += means[b]
	}
	sort.Float64s(means)

	return &model.RateInterval{
		SampleMean:    float64(hits) / float64(n),
		ResampledMean: total / float64(iterations),
		Lower:         means[percentileIndex(alpha/2, iterations)],
		Upper:         means[percentileIndex(1-alpha/2, iterations)],
	}
}

// percentileIndex maps a quantile to an index into sorted means
func percentileIndex(q float64, iterations int) int {
	i := int(math.Floor(q * float64(iterations)))
	if i < 0 {
		return 0
	}
	if i > iterations-1 {
		return iterations - 1
	}
	return i
}

// StreamSeed derives the generator stream for one (stratum, category) pair
// from its identity, so adding or removing strata never shifts another
// pair's draws.
func StreamSeed(stratum model.Stratum, cat model.Category) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(stratum.Source + "|" + stratum.Genre + "|" + string(cat)))
	return h.Sum64()
}

func newRand(seed int64, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), stream))
}
