package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"downsort/internal/testsupport"
)

type capturedRequest struct {
	header http.Header
	body   string
}

func newCapturingService(t *testing.T, captured *[]capturedRequest) Service {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*captured = append(*captured, capturedRequest{header: r.Header.Clone(), body: string(body)})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	cfg.Notifications.CallbackBase = "http://127.0.0.1:7519"
	return NewService(cfg)
}

func TestPromptPlacementCarriesActionButtons(t *testing.T) {
	var captured []capturedRequest
	service := newCapturingService(t, &captured)

	err := service.PromptPlacement(context.Background(), Prompt{
		Token:    "tok-1",
		Filename: "ts4-CoolMod.zip",
		Options: []PromptOption{
			{RuleName: "Sims4", Destination: "Games/Sims4/mods/", Confidence: 62},
			{RuleName: "Games", Destination: "Games/", Confidence: 48},
		},
	})
	if err != nil {
		t.Fatalf("PromptPlacement failed: %v", err)
	}
	if len(captured) != 1 {
		t.Fatalf("request count = %d", len(captured))
	}

	actions := captured[0].header.Get("Actions")
	for _, fragment := range []string{
		"http, Sims4, http://127.0.0.1:7519/api/choice?token=tok-1&option=0",
		"http, Games, http://127.0.0.1:7519/api/choice?token=tok-1&option=1",
		"http, Keep default, http://127.0.0.1:7519/api/choice?token=tok-1&option=default",
		"clear=true",
	} {
		if !strings.Contains(actions, fragment) {
			t.Errorf("Actions header missing %q: %s", fragment, actions)
		}
	}
	if got := captured[0].header.Get("Priority"); got != "high" {
		t.Errorf("Priority = %q", got)
	}
	if !strings.Contains(captured[0].body, "ts4-CoolMod.zip") {
		t.Errorf("body missing filename: %s", captured[0].body)
	}
}

func TestPromptSuppressedWhenDisabled(t *testing.T) {
	var captured []capturedRequest
	service := newCapturingService(t, &captured)
	service.(*ntfyService).prompts = false

	if err := service.PromptPlacement(context.Background(), Prompt{Token: "t", Filename: "f"}); err != nil {
		t.Fatalf("PromptPlacement failed: %v", err)
	}
	if len(captured) != 0 {
		t.Errorf("expected no request, got %d", len(captured))
	}
}

func TestNotifyRouted(t *testing.T) {
	var captured []capturedRequest
	service := newCapturingService(t, &captured)

	if err := service.NotifyRouted(context.Background(), "book.epub", "Books", "Books/book.epub"); err != nil {
		t.Fatalf("NotifyRouted failed: %v", err)
	}
	if len(captured) != 1 {
		t.Fatalf("request count = %d", len(captured))
	}
	if !strings.Contains(captured[0].body, "book.epub -> Books/book.epub") {
		t.Errorf("body = %q", captured[0].body)
	}
	if got := captured[0].header.Get("Title"); got != "Downsort - Routed" {
		t.Errorf("Title = %q", got)
	}
}

func TestNotifyErrorPriorityHigh(t *testing.T) {
	var captured []capturedRequest
	service := newCapturingService(t, &captured)

	if err := service.NotifyError(context.Background(), io.ErrUnexpectedEOF, "oracle"); err != nil {
		t.Fatalf("NotifyError failed: %v", err)
	}
	if len(captured) != 1 {
		t.Fatalf("request count = %d", len(captured))
	}
	if got := captured[0].header.Get("Priority"); got != "high" {
		t.Errorf("Priority = %q", got)
	}
	if !strings.Contains(captured[0].body, "oracle") {
		t.Errorf("body = %q", captured[0].body)
	}
}

func TestNoopWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	service := NewService(cfg)
	if _, ok := service.(noopService); !ok {
		t.Fatalf("expected noop service, got %T", service)
	}
	if err := service.TestNotification(context.Background()); err != nil {
		t.Errorf("noop TestNotification returned %v", err)
	}
}

func TestSendReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	service := NewService(cfg)

	err := service.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("expected 429 error, got %v", err)
	}
}

func TestSanitizeActionLabel(t *testing.T) {
	if got := sanitizeActionLabel("Sims 4, Mods; v2"); got != "Sims 4 Mods v2" {
		t.Errorf("sanitized label = %q", got)
	}
}
