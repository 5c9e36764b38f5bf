package decision

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"downsort/internal/browser"
	"downsort/internal/config"
	"downsort/internal/logging"
	"downsort/internal/match"
	"downsort/internal/notify"
	"downsort/internal/rules"
	"downsort/internal/services"
	"downsort/internal/services/oracle"
	"downsort/internal/tabcache"
)

// Deferrer hands completed downloads with absolute destinations to the
// mover.
type Deferrer interface {
	Defer(filename, destination, ruleName string)
}

// Engine turns a download event into a placement suggestion. It never
// returns an error to the caller: every failure degrades to the empty
// suggestion, which keeps the browser default.
type Engine struct {
	cfg      *config.Config
	store    *rules.Store
	registry *browser.Registry
	cache    *tabcache.Cache
	notifier notify.Service
	tracker  *Tracker
	logger   *slog.Logger

	oracle   *oracle.Service
	deferrer Deferrer
}

// Option customizes the engine.
type Option func(*Engine)

// WithOracle enables the external decision oracle.
func WithOracle(svc *oracle.Service) Option {
	return func(e *Engine) {
		e.oracle = svc
	}
}

// WithDeferrer routes absolute destinations through the mover.
func WithDeferrer(d Deferrer) Option {
	return func(e *Engine) {
		e.deferrer = d
	}
}

// NewEngine wires the decision engine with its collaborators.
func NewEngine(
	cfg *config.Config,
	store *rules.Store,
	registry *browser.Registry,
	cache *tabcache.Cache,
	notifier notify.Service,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	engine := &Engine{
		cfg:      cfg,
		store:    store,
		registry: registry,
		cache:    cache,
		notifier: notifier,
		tracker:  NewTracker(),
		logger:   logging.NewComponentLogger(logger, "decision"),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// ResolveChoice delivers a prompt callback. Option is a zero-based button
// index or the literal "default". It reports whether the token was still
// pending.
func (e *Engine) ResolveChoice(token, option string) bool {
	if option == "default" {
		return e.tracker.Default(token)
	}
	index, err := strconv.Atoi(option)
	if err != nil {
		return false
	}
	return e.tracker.Choose(token, index)
}

// PendingPrompts returns the number of prompts awaiting an answer.
func (e *Engine) PendingPrompts() int {
	return e.tracker.Pending()
}

// Suggest scores a download against the enabled rules and blocks until a
// placement is decided, prompting the user when the signals disagree.
func (e *Engine) Suggest(ctx context.Context, item browser.DownloadItem) browser.Suggestion {
	ctx = services.WithDownloadID(ctx, item.ID)
	logger := e.logger.With(logging.Int64(logging.FieldDownloadID, item.ID))

	ruleList, err := e.store.List(ctx, true)
	if err != nil {
		logger.Error("load rules", logging.Error(err))
		return browser.Suggestion{}
	}
	if len(ruleList) == 0 {
		logger.Debug("no enabled rules")
		return browser.Suggestion{}
	}
	candidates := rules.Candidates(ruleList)

	filenameResults := match.ScoreFilename(item.Filename, candidates)
	if top, ok := topResult(filenameResults); ok && top.FilenameScore >= e.cfg.Matching.FilenameThreshold {
		logger.Info("filename match",
			logging.String(logging.FieldRule, top.Name),
			logging.Float64("score", top.FilenameScore),
		)
		return e.accept(ctx, logger, item, top, "filename")
	}

	combined := e.scoreContext(ctx, item, filenameResults, candidates)
	match.SortByOverall(combined)

	host := referrerHost(item)
	if host != "" {
		if name, ok, recallErr := e.store.RecalledChoice(ctx, host); recallErr == nil && ok {
			if res, found := findResult(combined, name); found && res.Overall > 0 {
				logger.Info("remembered choice",
					logging.String(logging.FieldRule, res.Name),
					logging.String("host", host),
				)
				return e.accept(ctx, logger, item, res, "remembered")
			}
		}
	}

	if e.oracle != nil {
		if suggestion, decided := e.consultOracle(ctx, logger, item, combined, candidates); decided {
			return suggestion
		}
	}

	top := combined[0]
	m := e.cfg.Matching
	if top.FilenameScore >= m.FilenameThreshold ||
		top.URLScore >= m.URLThreshold ||
		top.TitleScore >= m.TitleThreshold ||
		top.ContentScore >= m.ContentThreshold {
		logger.Info("threshold match",
			logging.String(logging.FieldRule, top.Name),
			logging.Float64("score", top.Overall),
		)
		return e.accept(ctx, logger, item, top, "threshold")
	}

	if match.AllZero(combined) {
		logger.Debug("no opinion")
		return browser.Suggestion{}
	}

	return e.prompt(ctx, logger, item, promptCandidates(combined))
}

// consultOracle asks the oracle to break the tie. The second return value
// reports whether the oracle settled the download. Only the explicit
// abstention literal settles on the default; call failures and replies
// naming no known rule fall through to the threshold policy.
func (e *Engine) consultOracle(ctx context.Context, logger *slog.Logger, item browser.DownloadItem, combined []match.Result, candidates []match.Candidate) (browser.Suggestion, bool) {
	query := oracle.Query{
		Filename:   item.Filename,
		URL:        item.URL,
		Referrer:   item.Referrer,
		Candidates: candidates,
	}
	if tab, err := e.registry.Resolve(item.Initiator); err == nil {
		for _, entry := range e.cache.Entries(tab.ID) {
			if entry.Title != "" {
				query.PageTitles = append(query.PageTitles, entry.Title)
			}
		}
	}

	verdict, err := e.oracle.Decide(ctx, query)
	if err != nil {
		logger.Warn("oracle unavailable", logging.Error(err))
		_ = e.notifier.NotifyError(ctx, err, "oracle")
		return browser.Suggestion{}, false
	}

	switch len(verdict.Rules) {
	case 1:
		res, found := findResult(combined, verdict.Rules[0])
		if !found {
			return browser.Suggestion{}, false
		}
		logger.Info("oracle verdict", logging.String(logging.FieldRule, res.Name))
		return e.accept(ctx, logger, item, res, "oracle"), true
	case 2:
		confidence := e.cfg.Matching.OraclePairConfidence
		var options []promptCandidate
		for _, name := range verdict.Rules {
			if res, found := findResult(combined, name); found {
				options = append(options, promptCandidate{result: res, confidence: confidence})
			}
		}
		if len(options) != 2 {
			return browser.Suggestion{}, false
		}
		logger.Info("oracle pair", logging.String("rules", verdict.Rules[0]+" || "+verdict.Rules[1]))
		return e.prompt(ctx, logger, item, options), true
	default:
		if verdict.Abstained() {
			logger.Info("oracle abstained")
			return browser.Suggestion{}, true
		}
		logger.Warn("oracle verdict unusable", logging.String("raw", verdict.Raw))
		return browser.Suggestion{}, false
	}
}

// scoreContext gathers page evidence for the download and folds the URL,
// title, and content signals into the filename baseline. The evidence URL
// set starts with the download's own URL and referrer; the resolved tab's
// URL/title come next, then cached-tab entries. Tab resolution failure
// degrades to recent history; no evidence at all leaves the filename
// scores standing alone.
func (e *Engine) scoreContext(ctx context.Context, item browser.DownloadItem, base []match.Result, candidates []match.Candidate) []match.Result {
	maxItems := e.cfg.Matching.MaxContextItems

	urls := []string{item.URL, item.Referrer}
	var (
		titles         []string
		contentEntries []match.ContentEntry
	)

	tab, err := e.registry.Resolve(item.Initiator)
	if err == nil {
		urls = append(urls, tab.URL)
		titles = append(titles, tab.Title)
		for _, entry := range e.cache.Entries(tab.ID) {
			urls = append(urls, entry.URL)
			titles = append(titles, entry.Title)
			contentEntries = append(contentEntries, match.ContentEntry{
				URL:   entry.URL,
				Title: entry.Title,
				Stats: entry.Stats,
			})
		}
	} else {
		for _, visit := range e.registry.Recent(maxItems) {
			urls = append(urls, visit.URL)
			titles = append(titles, visit.Title)
		}
	}

	evidence := match.NewEvidence(urls, titles, maxItems)
	combined := match.Combine(base, match.ScoreEvidence(evidence, candidates))
	if len(contentEntries) > 0 {
		if len(contentEntries) > maxItems {
			contentEntries = contentEntries[:maxItems]
		}
		combined = match.Combine(combined, match.ScoreContent(contentEntries, candidates))
	}
	return combined
}

func (e *Engine) accept(ctx context.Context, logger *slog.Logger, item browser.DownloadItem, res match.Result, source string) browser.Suggestion {
	if IsAbsoluteDestination(res.Destination) {
		target := NormalizeDestination(res.Destination)
		if e.deferrer == nil {
			logger.Warn("absolute destination without mover",
				logging.String(logging.FieldRule, res.Name),
				logging.String("destination", target),
			)
			return browser.Suggestion{}
		}
		e.deferrer.Defer(baseFilename(item.Filename), target, res.Name)
		_ = e.notifier.NotifyDeferred(ctx, item.Filename, target)
		logger.Info("placement deferred",
			logging.String(logging.FieldRule, res.Name),
			logging.String("destination", target),
			logging.String("source", source),
		)
		return browser.Suggestion{}
	}

	placement := PlacementPath(res.Destination, item.Filename)
	_ = e.notifier.NotifyRouted(ctx, item.Filename, res.Name, placement)
	logger.Info("routed",
		logging.String(logging.FieldRule, res.Name),
		logging.String("path", placement),
		logging.String("source", source),
	)
	return browser.Suggestion{Filename: placement, ConflictAction: browser.ConflictUniquify}
}

type promptCandidate struct {
	result     match.Result
	confidence float64
}

func promptCandidates(combined []match.Result) []promptCandidate {
	var options []promptCandidate
	for _, res := range combined {
		if res.Overall <= 0 {
			break
		}
		options = append(options, promptCandidate{result: res, confidence: res.Overall})
		if len(options) == 2 {
			break
		}
	}
	return options
}

func (e *Engine) prompt(ctx context.Context, logger *slog.Logger, item browser.DownloadItem, options []promptCandidate) browser.Suggestion {
	if len(options) == 0 {
		return browser.Suggestion{}
	}

	timeout := time.Duration(e.cfg.Matching.PromptTimeoutSeconds) * time.Second
	token, wait := e.tracker.Create(timeout)

	prompt := notify.Prompt{Token: token, Filename: item.Filename}
	for _, option := range options {
		prompt.Options = append(prompt.Options, notify.PromptOption{
			RuleName:    option.result.Name,
			Destination: NormalizeDestination(option.result.Destination),
			Confidence:  option.confidence,
		})
	}

	if err := e.notifier.PromptPlacement(ctx, prompt); err != nil {
		e.tracker.Cancel(token)
		wrapped := services.Wrap(services.ErrPromptSurface, "decision", "prompt placement", "prompt delivery failed", err)
		logger.Warn("prompt failed", logging.Error(wrapped))
		return browser.Suggestion{}
	}
	logger.Info("prompted", logging.String("token", token), logging.Int("options", len(options)))

	select {
	case res := <-wait:
		switch res.outcome {
		case outcomeOption:
			if res.option < 0 || res.option >= len(options) {
				logger.Warn("choice out of range", logging.Int("option", res.option))
				return browser.Suggestion{}
			}
			chosen := options[res.option].result
			if host := referrerHost(item); host != "" {
				if err := e.store.RememberChoice(ctx, host, chosen.Name); err != nil {
					logger.Warn("remember choice", logging.Error(err))
				}
			}
			return e.accept(ctx, logger, item, chosen, "choice")
		case outcomeDefault:
			logger.Info("user kept default", logging.String("token", token))
			return browser.Suggestion{}
		default:
			logger.Info("prompt timed out", logging.String("token", token))
			_ = e.notifier.NotifyDefaulted(ctx, item.Filename, "prompt timed out")
			return browser.Suggestion{}
		}
	case <-ctx.Done():
		e.tracker.Cancel(token)
		return browser.Suggestion{}
	}
}

func topResult(results []match.Result) (match.Result, bool) {
	var best match.Result
	found := false
	for _, res := range results {
		if !found || res.Overall > best.Overall {
			best = res
			found = true
		}
	}
	return best, found
}

func findResult(results []match.Result, name string) (match.Result, bool) {
	for _, res := range results {
		if strings.EqualFold(res.Name, name) {
			return res, true
		}
	}
	return match.Result{}, false
}

func referrerHost(item browser.DownloadItem) string {
	for _, raw := range []string{item.Referrer, item.Initiator} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if host := strings.ToLower(parsed.Hostname()); host != "" {
			return host
		}
	}
	return ""
}
