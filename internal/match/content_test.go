package match

import (
	"math"
	"testing"
)

func contentEntries() []ContentEntry {
	return []ContentEntry{
		{
			URL:   "https://mods.example/sims4",
			Title: "Sims4 mods",
			Stats: map[string]Stats{
				"Sims4":     {TotalMatches: 30, KeywordMatches: map[string]int{"sims4": 20, "ts4": 10}},
				"Minecraft": {TotalMatches: 0},
			},
		},
		{
			URL:   "https://news.example",
			Title: "Gaming news",
			Stats: map[string]Stats{
				"Sims4":     {TotalMatches: 10},
				"Minecraft": {TotalMatches: 10},
			},
		},
	}
}

func TestScoreContentShareOfGrandTotal(t *testing.T) {
	results := ScoreContent(contentEntries(), testCandidates())

	// Sims4: 40 of 50 total matches = 80, no zero-match entries.
	if math.Abs(results[0].ContentScore-80) > 1e-9 {
		t.Errorf("Sims4 content score = %v, want 80", results[0].ContentScore)
	}
	// Minecraft: 10 of 50 = 20, one zero-match entry: 20 / 1.5.
	want := 20.0 / 1.5
	if math.Abs(results[1].ContentScore-want) > 1e-9 {
		t.Errorf("Minecraft content score = %v, want %v", results[1].ContentScore, want)
	}
}

func TestScoreContentZeroGrandTotal(t *testing.T) {
	entries := []ContentEntry{{Stats: map[string]Stats{}}}
	for _, result := range ScoreContent(entries, testCandidates()) {
		if result.ContentScore != 0 {
			t.Errorf("expected 0 for empty stats, got %v", result.ContentScore)
		}
	}
	for _, result := range ScoreContent(nil, testCandidates()) {
		if result.ContentScore != 0 {
			t.Errorf("expected 0 for no entries, got %v", result.ContentScore)
		}
	}
}

func TestScoreContentPenaltyCompounds(t *testing.T) {
	entries := []ContentEntry{
		{Stats: map[string]Stats{"Sims4": {TotalMatches: 100}}},
		{Stats: map[string]Stats{"Sims4": {TotalMatches: 0}}},
		{Stats: map[string]Stats{}},
	}
	candidates := []Candidate{{Name: "Sims4", Keywords: []string{"sims4"}}}
	results := ScoreContent(entries, candidates)

	// 100% share, two entries without matches: 100 / 1.5^2.
	want := 100.0 / (1.5 * 1.5)
	if math.Abs(results[0].ContentScore-want) > 1e-9 {
		t.Errorf("content score = %v, want %v", results[0].ContentScore, want)
	}
}

func TestScoreContentNotCappedAt100(t *testing.T) {
	// A single dominant rule with no zero-match entries holds 100% share; the
	// formula cannot exceed 100 without a penalty, but the value is not
	// clamped anywhere, which matters for callers that display it.
	entries := []ContentEntry{{Stats: map[string]Stats{"Sims4": {TotalMatches: 5}}}}
	candidates := []Candidate{{Name: "Sims4", Keywords: []string{"sims4"}}}
	results := ScoreContent(entries, candidates)
	if results[0].ContentScore != 100 {
		t.Errorf("content score = %v, want exactly 100 (uncapped path)", results[0].ContentScore)
	}
}
