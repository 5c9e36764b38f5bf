package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"downsort/internal/config"
)

const userAgent = "downsort/0.1.0"

// PromptOption is one selectable destination in a placement prompt.
type PromptOption struct {
	RuleName    string
	Destination string
	Confidence  float64
}

// Prompt asks the user to pick a destination for one download. Choosing a
// button fires an HTTP callback into the daemon API carrying the prompt
// token and the option index.
type Prompt struct {
	Token    string
	Filename string
	Options  []PromptOption
}

// Service defines the notification surface exposed to the decision engine
// and the mover.
type Service interface {
	PromptPlacement(ctx context.Context, prompt Prompt) error
	NotifyRouted(ctx context.Context, filename, ruleName, destination string) error
	NotifyDefaulted(ctx context.Context, filename, reason string) error
	NotifyDeferred(ctx context.Context, filename, destination string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		callbackBase: cfg.CallbackBase(),
		client:       &http.Client{Timeout: timeout},
		routed:       cfg.Notifications.Routed,
		prompts:      cfg.Notifications.Prompts,
		errors:       cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
	actions  []string
}

type ntfyService struct {
	endpoint     string
	callbackBase string
	client       *http.Client
	routed       bool
	prompts      bool
	errors       bool
}

func (n *ntfyService) PromptPlacement(ctx context.Context, prompt Prompt) error {
	if !n.prompts {
		return nil
	}

	var lines []string
	var actions []string
	for i, option := range prompt.Options {
		lines = append(lines, fmt.Sprintf("%d. %s -> %s (%.0f%%)",
			i+1, option.RuleName, option.Destination, option.Confidence))
		callback := fmt.Sprintf("%s/api/choice?token=%s&option=%d",
			n.callbackBase, url.QueryEscape(prompt.Token), i)
		actions = append(actions, fmt.Sprintf("http, %s, %s, method=GET, clear=true",
			sanitizeActionLabel(option.RuleName), callback))
	}
	actions = append(actions, fmt.Sprintf("http, Keep default, %s/api/choice?token=%s&option=default, method=GET, clear=true",
		n.callbackBase, url.QueryEscape(prompt.Token)))

	data := payload{
		title:    "Downsort - Where does this go?",
		message:  fmt.Sprintf("%s\n%s\nNo answer keeps the browser default.", prompt.Filename, strings.Join(lines, "\n")),
		tags:     []string{"downsort", "prompt"},
		priority: "high",
		actions:  actions,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRouted(ctx context.Context, filename, ruleName, destination string) error {
	if !n.routed {
		return nil
	}
	data := payload{
		title:   "Downsort - Routed",
		message: fmt.Sprintf("%s -> %s (%s)", strings.TrimSpace(filename), strings.TrimSpace(destination), strings.TrimSpace(ruleName)),
		tags:    []string{"downsort", "routed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDefaulted(ctx context.Context, filename, reason string) error {
	if !n.routed {
		return nil
	}
	data := payload{
		title:   "Downsort - Default Location",
		message: fmt.Sprintf("%s kept the browser default (%s)", strings.TrimSpace(filename), strings.TrimSpace(reason)),
		tags:    []string{"downsort", "defaulted"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDeferred(ctx context.Context, filename, destination string) error {
	if !n.routed {
		return nil
	}
	data := payload{
		title:   "Downsort - Deferred",
		message: fmt.Sprintf("%s will move to %s once the download settles", strings.TrimSpace(filename), strings.TrimSpace(destination)),
		tags:    []string{"downsort", "deferred"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Downsort - Error",
		message:  builder.String(),
		tags:     []string{"downsort", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Downsort - Test",
		message:  "Notification system test",
		tags:     []string{"downsort", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}
	if len(data.actions) > 0 {
		req.Header.Set("Actions", strings.Join(data.actions, "; "))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// sanitizeActionLabel keeps rule names safe inside the comma-delimited ntfy
// Actions header.
func sanitizeActionLabel(label string) string {
	replacer := strings.NewReplacer(",", " ", ";", " ", "\n", " ")
	return strings.Join(strings.Fields(replacer.Replace(label)), " ")
}

type noopService struct{}

func (noopService) PromptPlacement(context.Context, Prompt) error              { return nil }
func (noopService) NotifyRouted(context.Context, string, string, string) error { return nil }
func (noopService) NotifyDefaulted(context.Context, string, string) error      { return nil }
func (noopService) NotifyDeferred(context.Context, string, string) error       { return nil }
func (noopService) NotifyError(context.Context, error, string) error           { return nil }
func (noopService) TestNotification(context.Context) error                     { return nil }
