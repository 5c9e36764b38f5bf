package match

// ScoreFilename scores every candidate against the download's filename. Each
// keyword counts at most once; the score is the matched fraction of the
// rule's keywords as a percentage, capped at 100. Candidates with no keywords
// score zero. One result is emitted per candidate regardless of score; later
// combine passes rely on that.
func ScoreFilename(filename string, candidates []Candidate) []Result {
	normalized := Normalize(filename)
	results := make([]Result, 0, len(candidates))
	for _, candidate := range candidates {
		matched := 0
		for _, keyword := range candidate.Keywords {
			if Contains(normalized, keyword) {
				matched++
			}
		}
		var score float64
		if len(candidate.Keywords) > 0 {
			score = capScore(float64(matched) / float64(len(candidate.Keywords)) * 100)
		}
		results = append(results, Result{
			Name:          candidate.Name,
			Destination:   candidate.Destination,
			FilenameScore: score,
			Overall:       score,
		})
	}
	return results
}

// HighestFilenameScore returns the best filename score in the set.
func HighestFilenameScore(results []Result) float64 {
	best := 0.0
	for _, result := range results {
		if result.FilenameScore > best {
			best = result.FilenameScore
		}
	}
	return best
}

func capScore(score float64) float64 {
	if score > 100 {
		return 100
	}
	return score
}
