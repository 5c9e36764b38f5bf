package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"downsort/internal/match"
)

var testCandidates = []match.Candidate{
	{Name: "Sims4", Destination: "Games/Sims4/mods/", Keywords: []string{"sims 4", "ts4"}},
	{Name: "Books", Destination: "Books/", Keywords: []string{"epub"}},
}

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "test-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	return NewService(client, nil)
}

func chatResponse(content string) string {
	return `{"choices":[{"message":{"content":"` + content + `"}}]}`
}

func TestDecideSingleRule(t *testing.T) {
	service := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("authorization header = %q", got)
		}
		_, _ = w.Write([]byte(chatResponse("Sims4")))
	})

	verdict, err := service.Decide(context.Background(), Query{
		Filename:   "ts4-CoolMod.zip",
		Candidates: testCandidates,
	})
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if len(verdict.Rules) != 1 || verdict.Rules[0] != "Sims4" {
		t.Errorf("verdict = %+v", verdict)
	}
}

func TestDecideLegacyTextShape(t *testing.T) {
	service := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"text":"Books"}]}`))
	})

	verdict, err := service.Decide(context.Background(), Query{
		Filename:   "novel.epub",
		Candidates: testCandidates,
	})
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if len(verdict.Rules) != 1 || verdict.Rules[0] != "Books" {
		t.Errorf("verdict = %+v", verdict)
	}
}

func TestDecideRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	service := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(chatResponse("Sims4")))
	})

	verdict, err := service.Decide(context.Background(), Query{
		Filename:   "mod.zip",
		Candidates: testCandidates,
	})
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("request count = %d, want 2", calls.Load())
	}
	if verdict.Abstained() {
		t.Error("expected a verdict after retry")
	}
}

func TestDecideNoCandidatesSkipsRequest(t *testing.T) {
	service := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without candidates")
	})
	verdict, err := service.Decide(context.Background(), Query{Filename: "x.bin"})
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if !verdict.Abstained() {
		t.Errorf("verdict = %+v", verdict)
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"single", "Sims4", []string{"Sims4"}},
		{"case insensitive", "sims4", []string{"Sims4"}},
		{"quoted", `"Books".`, []string{"Books"}},
		{"null literal", "{NULL}", nil},
		{"empty", "   ", nil},
		{"pair", "Sims4 || Books", []string{"Sims4", "Books"}},
		{"pair with unknown half", "Sims4 || Movies", []string{"Sims4"}},
		{"all unknown", "Movies || Music", nil},
		{"invented name", "Downloads", nil},
		{"duplicate pair", "Books || books", []string{"Books"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			verdict := ParseVerdict(tc.raw, testCandidates)
			if len(verdict.Rules) != len(tc.want) {
				t.Fatalf("rules = %v, want %v", verdict.Rules, tc.want)
			}
			for i, name := range tc.want {
				if verdict.Rules[i] != name {
					t.Errorf("rules[%d] = %q, want %q", i, verdict.Rules[i], name)
				}
			}
		})
	}
}

func TestAbstainedOnlyForNullLiteral(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"{NULL}", true},
		{"  {null}. ", true},
		{"Downloads", false},
		{"Movies || Music", false},
		{"", false},
		{"Sims4", false},
	}
	for _, tc := range tests {
		if got := ParseVerdict(tc.raw, testCandidates).Abstained(); got != tc.want {
			t.Errorf("Abstained(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestDescribeQueryMentionsEvidence(t *testing.T) {
	description := describeQuery(Query{
		Filename:   "ts4-CoolMod.zip",
		URL:        "https://cdn.example/file",
		Referrer:   "https://mods.example/sims4",
		PageTitles: []string{"Best Sims 4 Mods"},
		Candidates: testCandidates,
	})
	for _, fragment := range []string{"ts4-CoolMod.zip", "https://mods.example/sims4", "Best Sims 4 Mods", "Sims4", "Games/Sims4/mods/"} {
		if !strings.Contains(description, fragment) {
			t.Errorf("description missing %q:\n%s", fragment, description)
		}
	}
}
