package match

import "math"

// Stats holds the keyword counts one page reported for one rule.
type Stats struct {
	TotalMatches   int
	KeywordMatches map[string]int
}

// ContentEntry is one page-load's keyword analysis: the page identity plus
// per-rule counts, as produced by the content-extraction collaborator.
type ContentEntry struct {
	URL   string
	Title string
	Stats map[string]Stats
}

const contentPenaltyBase = 1.5

// ScoreContent scores every candidate against the cached page keyword
// statistics. The raw score is the rule's share of all keyword matches across
// all entries and all rules. A confidence penalty then divides the raw score
// by 1.5 for every entry where the rule recorded no matches (or carried no
// stats at all), so a rule boosted by one spiky page but absent everywhere
// else decays quickly.
//
// Unlike the other scorers the final value is NOT capped at 100. That quirk
// is load-bearing: downstream thresholds compare against it as-is and
// displays may legitimately show more than 100%.
func ScoreContent(entries []ContentEntry, candidates []Candidate) []Result {
	totals := make(map[string]int, len(candidates))
	grandTotal := 0
	for _, candidate := range candidates {
		for _, entry := range entries {
			totals[candidate.Name] += entry.Stats[candidate.Name].TotalMatches
		}
		grandTotal += totals[candidate.Name]
	}

	results := make([]Result, 0, len(candidates))
	for _, candidate := range candidates {
		var score float64
		if grandTotal > 0 {
			score = float64(totals[candidate.Name]) / float64(grandTotal) * 100

			zeroEntries := 0
			for _, entry := range entries {
				if entry.Stats[candidate.Name].TotalMatches == 0 {
					zeroEntries++
				}
			}
			if zeroEntries > 0 {
				score /= math.Pow(contentPenaltyBase, float64(zeroEntries))
			}
		}
		results = append(results, Result{
			Name:         candidate.Name,
			Destination:  candidate.Destination,
			ContentScore: score,
			Overall:      score,
		})
	}
	return results
}
