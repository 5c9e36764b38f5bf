package rules

import (
	"strings"
	"time"

	"downsort/internal/match"
)

// Rule maps a category to a destination folder and the keywords that vote
// for it. Keywords are stored comma separated.
type Rule struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Destination string    `json:"destination"`
	Keywords    string    `json:"keywords"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// KeywordList splits the stored keyword string into trimmed, non-empty
// keywords.
func (r Rule) KeywordList() []string {
	parts := strings.Split(r.Keywords, ",")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	return keywords
}

// Candidate converts the rule into the scoring engine's input form.
func (r Rule) Candidate() match.Candidate {
	return match.Candidate{
		Name:        r.Name,
		Destination: r.Destination,
		Keywords:    r.KeywordList(),
	}
}

// Candidates converts a rule slice for scoring.
func Candidates(list []Rule) []match.Candidate {
	candidates := make([]match.Candidate, 0, len(list))
	for _, rule := range list {
		candidates = append(candidates, rule.Candidate())
	}
	return candidates
}

// RememberedChoice records that the user picked a rule for downloads coming
// from a particular referrer host.
type RememberedChoice struct {
	Host      string    `json:"host"`
	RuleName  string    `json:"rule_name"`
	UpdatedAt time.Time `json:"updated_at"`
}
