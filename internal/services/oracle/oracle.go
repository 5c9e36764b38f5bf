package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"downsort/internal/logging"
	"downsort/internal/match"
	"downsort/internal/services"
)

// nullVerdict is the literal the model returns when it declines to pick a
// rule.
const nullVerdict = "{NULL}"

// Query describes one undecided download for the oracle.
type Query struct {
	Filename   string
	URL        string
	Referrer   string
	PageTitles []string
	Candidates []match.Candidate
}

// Verdict is the oracle's parsed answer. Rules holds zero, one, or two rule
// names: one means route directly, two means prompt with exactly those
// options. Zero rules means either an explicit abstention (the {NULL}
// literal) or a reply that named no known rule; the two are not the same
// decision and Abstained tells them apart.
type Verdict struct {
	Rules []string
	Raw   string
}

// Abstained reports whether the oracle explicitly declined to pick a rule.
// A reply that simply matched nothing is not an abstention.
func (v Verdict) Abstained() bool {
	cleaned := strings.Trim(strings.TrimSpace(v.Raw), "\"'`.")
	return strings.EqualFold(cleaned, nullVerdict)
}

// Service asks an external language model to break ties the scoring engine
// could not.
type Service struct {
	client *Client
	logger *slog.Logger
}

// NewService wraps a client for verdict queries.
func NewService(client *Client, logger *slog.Logger) *Service {
	return &Service{
		client: client,
		logger: logging.NewComponentLogger(logger, "oracle"),
	}
}

// Decide describes the download to the model and parses its verdict. Rule
// names the model invents are dropped; a verdict reduced to nothing is not
// an error, the caller decides what a useless reply means.
func (s *Service) Decide(ctx context.Context, query Query) (Verdict, error) {
	if len(query.Candidates) == 0 {
		return Verdict{Raw: nullVerdict}, nil
	}

	raw, err := s.client.Complete(ctx, verdictSystemPrompt, describeQuery(query))
	if err != nil {
		return Verdict{}, services.Wrap(services.ErrOracle, "oracle", "decide", "completion failed", err)
	}

	verdict := ParseVerdict(raw, query.Candidates)
	s.logger.Debug("oracle verdict",
		logging.String("raw", verdict.Raw),
		logging.Int("rules", len(verdict.Rules)),
	)
	return verdict, nil
}

// ParseVerdict normalizes a raw model reply into a Verdict. Accepted shapes
// are a single rule name, two names joined by "||", and the {NULL} literal.
func ParseVerdict(raw string, candidates []match.Candidate) Verdict {
	verdict := Verdict{Raw: strings.TrimSpace(raw)}
	cleaned := strings.Trim(verdict.Raw, "\"'`.")
	if cleaned == "" || strings.EqualFold(cleaned, nullVerdict) {
		return verdict
	}

	for _, part := range strings.Split(cleaned, "||") {
		name, ok := canonicalRuleName(part, candidates)
		if !ok {
			continue
		}
		if !containsName(verdict.Rules, name) {
			verdict.Rules = append(verdict.Rules, name)
		}
		if len(verdict.Rules) == 2 {
			break
		}
	}
	return verdict
}

func canonicalRuleName(name string, candidates []match.Candidate) (string, bool) {
	trimmed := strings.Trim(strings.TrimSpace(name), "\"'`.")
	if trimmed == "" {
		return "", false
	}
	for _, candidate := range candidates {
		if strings.EqualFold(candidate.Name, trimmed) {
			return candidate.Name, true
		}
	}
	return "", false
}

func containsName(names []string, name string) bool {
	for _, existing := range names {
		if existing == name {
			return true
		}
	}
	return false
}

func describeQuery(query Query) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Filename: %s\n", query.Filename)
	if query.URL != "" {
		fmt.Fprintf(&b, "Download URL: %s\n", query.URL)
	}
	if query.Referrer != "" {
		fmt.Fprintf(&b, "Referrer: %s\n", query.Referrer)
	}
	if len(query.PageTitles) > 0 {
		b.WriteString("Recent page titles:\n")
		for _, title := range query.PageTitles {
			fmt.Fprintf(&b, "- %s\n", title)
		}
	}
	b.WriteString("Rules:\n")
	for _, candidate := range query.Candidates {
		fmt.Fprintf(&b, "- %s (keywords: %s) -> %s\n",
			candidate.Name, strings.Join(candidate.Keywords, ", "), candidate.Destination)
	}
	return b.String()
}
