package match

import "strings"

// Evidence is the bounded set of URLs and page titles gathered around a
// download: the download URL, its referrer, and the originating tab (or
// history fallback).
type Evidence struct {
	URLs   []string
	Titles []string
}

// NewEvidence drops blank entries and truncates each list to the configured
// maximum, preserving the caller's priority order.
func NewEvidence(urls, titles []string, maxItems int) Evidence {
	return Evidence{
		URLs:   boundEvidence(urls, maxItems),
		Titles: boundEvidence(titles, maxItems),
	}
}

func boundEvidence(values []string, maxItems int) []string {
	kept := make([]string, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		kept = append(kept, value)
		if maxItems > 0 && len(kept) >= maxItems {
			break
		}
	}
	return kept
}

// ScoreEvidence scores every candidate against the URL and title evidence.
//
// The two metrics are deliberately asymmetric. A URL counts once per rule no
// matter how many keywords hit it, so the URL score is the fraction of
// evidence URLs that matched at all. Title hits are counted per keyword with
// no per-title cap, normalized by titles x keywords, so one rich title can
// contribute multiple hits. The rule's combined score for this signal is the
// larger of the two metrics.
func ScoreEvidence(evidence Evidence, candidates []Candidate) []Result {
	normalizedURLs := make([]string, len(evidence.URLs))
	for i, url := range evidence.URLs {
		normalizedURLs[i] = Normalize(url)
	}
	normalizedTitles := make([]string, len(evidence.Titles))
	for i, title := range evidence.Titles {
		normalizedTitles[i] = Normalize(title)
	}

	results := make([]Result, 0, len(candidates))
	for _, candidate := range candidates {
		urlHits := 0
		for _, url := range normalizedURLs {
			for _, keyword := range candidate.Keywords {
				if Contains(url, keyword) {
					urlHits++
					break
				}
			}
		}

		titleHits := 0
		for _, title := range normalizedTitles {
			for _, keyword := range candidate.Keywords {
				if Contains(title, keyword) {
					titleHits++
				}
			}
		}

		var urlScore, titleScore float64
		if len(normalizedURLs) > 0 && len(candidate.Keywords) > 0 {
			urlScore = capScore(float64(urlHits) / float64(len(normalizedURLs)) * 100)
		}
		if len(normalizedTitles) > 0 && len(candidate.Keywords) > 0 {
			titleScore = capScore(float64(titleHits) / float64(len(normalizedTitles)*len(candidate.Keywords)) * 100)
		}

		overall := urlScore
		if titleScore > overall {
			overall = titleScore
		}
		results = append(results, Result{
			Name:        candidate.Name,
			Destination: candidate.Destination,
			URLScore:    urlScore,
			TitleScore:  titleScore,
			Overall:     overall,
		})
	}
	return results
}
