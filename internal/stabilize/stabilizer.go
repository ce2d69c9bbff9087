package stabilize

import (
	"context"
	"log/slog"
	"sort"

	"github.com/ppiankov/experia/internal/model"
	"github.com/ppiankov/experia/internal/worker"
)

// Stabilizer produces a BootstrapEstimate for every (stratum, category)
// pair. It is deterministic for a given seed and input.
type Stabilizer struct {
	seed       int64
	iterations int
	alpha      float64
	groupBy    string
	workers    int
}

// New creates a stabilizer from the run configuration
func New(cfg *model.Config) *Stabilizer {
	return &Stabilizer{
		seed:       cfg.Seed,
		iterations: cfg.BootstrapIterations,
		alpha:      cfg.Stabilizer.Alpha,
		groupBy:    cfg.Stabilizer.GroupBy,
		workers:    cfg.WorkerCount(),
	}
}

// StratumOf returns the stratum a record belongs to under the grouping mode
func (s *Stabilizer) StratumOf(r model.DocumentExtractionRecord) model.Stratum {
	if s.groupBy == model.GroupBySource {
		return model.Stratum{Source: r.Source}
	}
	return model.Stratum{Source: r.Source, Genre: r.Genre}
}

type pairJob struct {
	s       *Stabilizer
	stratum model.Stratum
	cat     model.Category
	flags   []bool
}

type pairResult struct {
	estimate model.BootstrapEstimate
}

func (r pairResult) GetError() error { return nil }

func (j pairJob) Execute(_ context.Context) worker.Result {
	stream := StreamSeed(j.stratum, j.cat)
	est := model.BootstrapEstimate{
		Stratum:    j.stratum,
		Category:   j.cat,
		N:          len(j.flags),
		Iterations: j.s.iterations,
		Seed:       stream,
		Alpha:      j.s.alpha,
	}

	est.Rate = Bootstrap(j.flags, j.s.iterations, j.s.alpha, newRand(j.s.seed, stream))
	est.Undefined = est.Rate == nil
	return pairResult{estimate: est}
}

// Estimate groups records into strata and bootstraps every category in each.
// Extra strata (for example sources that failed sampling) are reported with
// n = 0 and an undefined rate. Output is sorted by source, genre and
// category order.
func (s *Stabilizer) Estimate(records []model.DocumentExtractionRecord, extra ...model.Stratum) []model.BootstrapEstimate {
	groups := make(map[model.Stratum][]model.DocumentExtractionRecord)
	for _, r := range records {
		st := s.StratumOf(r)
		groups[st] = append(groups[st], r)
	}
	for _, st := range extra {
		if _, ok := groups[st]; !ok {
			groups[st] = nil
		}
	}

	strata := make([]model.Stratum, 0, len(groups))
	for st := range groups {
		strata = append(strata, st)
	}
	sort.Slice(strata, func(i, j int) bool {
		if strata[i].Source != strata[j].Source {
			return strata[i].Source < strata[j].Source
		}
		return strata[i].Genre < strata[j].Genre
	})

	var jobs []worker.Job
	for _, st := range strata {
		docs := groups[st]
		for _, cat := range model.AllCategories() {
			flags := make([]bool, len(docs))
			for i, r := range docs {
				flags[i] = r.Has(cat)
			}
			jobs = append(jobs, pairJob{s: s, stratum: st, cat: cat, flags: flags})
		}
	}

	results := worker.Run(s.workers, jobs)
	estimates := make([]model.BootstrapEstimate, len(results))
	for i, r := range results {
		estimates[i] = r.(pairResult).estimate
		if estimates[i].Undefined {
			slog.Warn("prevalence undefined: stratum has no documents",
				"stratum", estimates[i].Stratum.String(), "category", estimates[i].Category)
		}
	}
	return estimates
}
