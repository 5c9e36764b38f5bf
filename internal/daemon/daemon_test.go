package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"downsort/internal/browser"
	"downsort/internal/config"
	"downsort/internal/daemon"
	"downsort/internal/rules"
	"downsort/internal/testsupport"
)

func startDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	store, err := rules.Open(cfg)
	if err != nil {
		t.Fatalf("open rules store: %v", err)
	}
	d, err := daemon.New(cfg, store, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestDownloadFlowOverAPI(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg)
	base := "http://" + d.Addr()

	store, err := rules.Open(cfg)
	if err != nil {
		t.Fatalf("open rules store: %v", err)
	}
	defer store.Close()
	rule := &rules.Rule{Name: "Sims4", Destination: "Games/Sims4/mods/", Keywords: "ts4, sims 4", Enabled: true}
	if err := store.Create(context.Background(), rule); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	resp := postJSON(t, base+"/api/downloads", browser.DownloadItem{
		ID:       1,
		Filename: "ts4-CoolMod.zip",
		URL:      "https://mods.example/file/123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var suggestion browser.Suggestion
	decodeBody(t, resp, &suggestion)
	if suggestion.Filename != "Games/Sims4/mods/ts4-CoolMod.zip" {
		t.Errorf("suggestion filename = %q", suggestion.Filename)
	}
	if suggestion.ConflictAction != browser.ConflictUniquify {
		t.Errorf("conflict action = %q", suggestion.ConflictAction)
	}
}

func TestTabAndKeywordEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg)
	base := "http://" + d.Addr()

	resp := postJSON(t, base+"/api/events/tabs", map[string]any{
		"event": "created",
		"tab":   browser.TabInfo{ID: 7, URL: "https://example.com/page", Title: "Example"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tab event status = %d", resp.StatusCode)
	}

	resp = postJSON(t, base+"/api/events/keywords", browser.KeywordReport{
		TabID: 7,
		URL:   "https://example.com/page",
		Title: "Example",
		Results: map[string]browser.KeywordStats{
			"Docs": {TotalMatches: 3, KeywordMatches: map[string]int{"manual": 3}},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("keyword event status = %d", resp.StatusCode)
	}

	var status daemon.Status
	statusResp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer statusResp.Body.Close()
	decodeBody(t, statusResp, &status)
	if !status.Running {
		t.Error("daemon should report running")
	}
	if status.TrackedTabs != 1 {
		t.Errorf("tracked tabs = %d", status.TrackedTabs)
	}

	resp = postJSON(t, base+"/api/events/tabs", map[string]any{
		"event": "removed",
		"tab":   browser.TabInfo{ID: 7},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remove event status = %d", resp.StatusCode)
	}
}

func TestRuleEndpoints(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg)
	base := "http://" + d.Addr()

	resp := postJSON(t, base+"/api/rules", rules.Rule{
		Name:        "Invoices",
		Destination: "Finance/Invoices/",
		Keywords:    "invoice, receipt",
		Enabled:     true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created rules.Rule
	decodeBody(t, resp, &created)
	if created.ID == 0 {
		t.Fatal("created rule has no id")
	}

	listResp, err := http.Get(base + "/api/rules")
	if err != nil {
		t.Fatalf("GET rules: %v", err)
	}
	defer listResp.Body.Close()
	var listing struct {
		Rules []rules.Rule `json:"rules"`
	}
	decodeBody(t, listResp, &listing)
	if len(listing.Rules) != 1 || listing.Rules[0].Name != "Invoices" {
		t.Fatalf("listing = %+v", listing.Rules)
	}

	patchBody := bytes.NewReader([]byte(`{"enabled": false}`))
	req, err := http.NewRequest(http.MethodPatch, fmt.Sprintf("%s/api/rules/%d", base, created.ID), patchBody)
	if err != nil {
		t.Fatalf("build PATCH: %v", err)
	}
	patchResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH rule: %v", err)
	}
	patchResp.Body.Close()
	if patchResp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d", patchResp.StatusCode)
	}

	req, err = http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/rules/%d", base, created.ID), nil)
	if err != nil {
		t.Fatalf("build DELETE: %v", err)
	}
	deleteResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE rule: %v", err)
	}
	deleteResp.Body.Close()
	if deleteResp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", deleteResp.StatusCode)
	}

	req, err = http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/rules/%d", base, created.ID), nil)
	if err != nil {
		t.Fatalf("build DELETE: %v", err)
	}
	missingResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE missing rule: %v", err)
	}
	missingResp.Body.Close()
	if missingResp.StatusCode != http.StatusNotFound {
		t.Errorf("delete missing status = %d", missingResp.StatusCode)
	}
}

func TestBearerTokenRequired(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.API.Token = "sekrit"
	d := startDaemon(t, cfg)
	base := "http://" + d.Addr()

	resp := postJSON(t, base+"/api/rules", rules.Rule{Name: "X", Destination: "X/", Keywords: "x"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create status = %d", resp.StatusCode)
	}

	body, _ := json.Marshal(rules.Rule{Name: "X", Destination: "X/", Keywords: "x", Enabled: true})
	req, err := http.NewRequest(http.MethodPost, base+"/api/rules", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer sekrit")
	authResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authenticated POST: %v", err)
	}
	authResp.Body.Close()
	if authResp.StatusCode != http.StatusCreated {
		t.Fatalf("authenticated create status = %d", authResp.StatusCode)
	}

	// Choice callbacks come from ntfy action buttons and cannot carry
	// headers, so they bypass token auth.
	choiceResp, err := http.Get(base + "/api/choice?token=nope&option=0")
	if err != nil {
		t.Fatalf("GET choice: %v", err)
	}
	choiceResp.Body.Close()
	if choiceResp.StatusCode != http.StatusNotFound {
		t.Errorf("choice status = %d, want 404 not 401", choiceResp.StatusCode)
	}
}

func TestChoiceValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg)
	base := "http://" + d.Addr()

	resp, err := http.Get(base + "/api/choice")
	if err != nil {
		t.Fatalf("GET choice: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing params status = %d", resp.StatusCode)
	}
}

func TestSecondInstanceRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	startDaemon(t, cfg)

	store, err := rules.Open(cfg)
	if err != nil {
		t.Fatalf("open rules store: %v", err)
	}
	second, err := daemon.New(cfg, store, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })
	if err := second.Start(context.Background()); err == nil {
		t.Error("second instance should fail to acquire the lock")
	}
}
