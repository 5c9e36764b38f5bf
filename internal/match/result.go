package match

import "sort"

// Candidate is the per-rule view the scorers consume: a rule name, its
// destination, and its already-normalized keyword list.
type Candidate struct {
	Name        string
	Destination string
	Keywords    []string
}

// Result carries the per-signal scores of one rule for one download. Scores
// are percentages; every signal except content is capped at 100. Overall is
// the maximum of the four component scores: best evidence wins, scores are
// never blended.
type Result struct {
	Name          string
	Destination   string
	FilenameScore float64
	URLScore      float64
	TitleScore    float64
	ContentScore  float64
	Overall       float64
}

func (r *Result) recomputeOverall() {
	overall := r.FilenameScore
	for _, score := range []float64{r.URLScore, r.TitleScore, r.ContentScore} {
		if score > overall {
			overall = score
		}
	}
	r.Overall = overall
}

// Combine merges a second signal's results into the base set. Rule name is
// the join key: every scorer emits exactly one result per enabled rule, so
// every name in other is expected in base; entries without a base counterpart
// are dropped rather than appended. Component scores become the running
// maximum of both sets and Overall is recomputed from the merged components,
// never copied from either input.
func Combine(base, other []Result) []Result {
	combined := make([]Result, len(base))
	copy(combined, base)

	index := make(map[string]int, len(combined))
	for i, result := range combined {
		index[result.Name] = i
	}

	for _, addition := range other {
		i, ok := index[addition.Name]
		if !ok {
			continue
		}
		merged := &combined[i]
		if addition.FilenameScore > merged.FilenameScore {
			merged.FilenameScore = addition.FilenameScore
		}
		if addition.URLScore > merged.URLScore {
			merged.URLScore = addition.URLScore
		}
		if addition.TitleScore > merged.TitleScore {
			merged.TitleScore = addition.TitleScore
		}
		if addition.ContentScore > merged.ContentScore {
			merged.ContentScore = addition.ContentScore
		}
		merged.recomputeOverall()
	}
	return combined
}

// SortByOverall orders results by overall score descending. The sort is
// stable so equal-scoring rules keep their configured order.
func SortByOverall(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Overall > results[j].Overall
	})
}

// AllZero reports whether no rule scored on any signal.
func AllZero(results []Result) bool {
	for _, result := range results {
		if result.Overall != 0 {
			return false
		}
	}
	return true
}
