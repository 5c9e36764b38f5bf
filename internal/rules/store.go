package rules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"downsort/internal/config"
	"downsort/internal/services"
)

// Store manages rule and remembered-choice persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const timeLayout = time.RFC3339Nano

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the rules database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.RulesDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk database location.
func (s *Store) Path() string {
	return s.path
}

const ruleColumns = "id, name, destination, keywords, enabled, created_at, updated_at"

func scanRule(row interface{ Scan(dest ...any) error }) (Rule, error) {
	var (
		rule      Rule
		enabled   int
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&rule.ID, &rule.Name, &rule.Destination, &rule.Keywords, &enabled, &createdAt, &updatedAt); err != nil {
		return Rule{}, err
	}
	rule.Enabled = enabled != 0
	rule.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	rule.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return rule, nil
}

// Create inserts a rule and fills in its ID and timestamps.
func (s *Store) Create(ctx context.Context, rule *Rule) error {
	if rule == nil {
		return services.Wrap(services.ErrValidation, "rules", "create rule", "nil rule", nil)
	}
	name := strings.TrimSpace(rule.Name)
	if name == "" {
		return services.Wrap(services.ErrValidation, "rules", "create rule", "rule name is required", nil)
	}
	if strings.TrimSpace(rule.Destination) == "" {
		return services.Wrap(services.ErrValidation, "rules", "create rule", "rule destination is required", nil)
	}

	now := time.Now().UTC()
	res, err := s.execWithRetry(ctx,
		"INSERT INTO rules (name, destination, keywords, enabled, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		name, rule.Destination, rule.Keywords, boolToInt(rule.Enabled), now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return services.Wrap(services.ErrValidation, "rules", "create rule", "insert failed", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read rule id: %w", err)
	}
	rule.ID = id
	rule.Name = name
	rule.CreatedAt = now
	rule.UpdatedAt = now
	return nil
}

// Update rewrites an existing rule's destination, keywords and enabled flag.
func (s *Store) Update(ctx context.Context, rule *Rule) error {
	if rule == nil || rule.ID == 0 {
		return services.Wrap(services.ErrValidation, "rules", "update rule", "rule id is required", nil)
	}
	now := time.Now().UTC()
	res, err := s.execWithRetry(ctx,
		"UPDATE rules SET name = ?, destination = ?, keywords = ?, enabled = ?, updated_at = ? WHERE id = ?",
		rule.Name, rule.Destination, rule.Keywords, boolToInt(rule.Enabled), now.Format(timeLayout), rule.ID)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check update: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "rules", "update rule", fmt.Sprintf("rule %d not found", rule.ID), nil)
	}
	rule.UpdatedAt = now
	return nil
}

// Delete removes a rule by ID.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check delete: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "rules", "delete rule", fmt.Sprintf("rule %d not found", id), nil)
	}
	return nil
}

// SetEnabled toggles whether a rule participates in scoring.
func (s *Store) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	now := time.Now().UTC()
	res, err := s.execWithRetry(ctx,
		"UPDATE rules SET enabled = ?, updated_at = ? WHERE id = ?",
		boolToInt(enabled), now.Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("set rule enabled: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check enable: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "rules", "enable rule", fmt.Sprintf("rule %d not found", id), nil)
	}
	return nil
}

// Get returns a rule by ID.
func (s *Store) Get(ctx context.Context, id int64) (Rule, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+ruleColumns+" FROM rules WHERE id = ?", id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Rule{}, services.Wrap(services.ErrNotFound, "rules", "get rule", fmt.Sprintf("rule %d not found", id), nil)
	}
	if err != nil {
		return Rule{}, fmt.Errorf("get rule: %w", err)
	}
	return rule, nil
}

// GetByName returns a rule by its case-insensitive name.
func (s *Store) GetByName(ctx context.Context, name string) (Rule, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+ruleColumns+" FROM rules WHERE name = ?", strings.TrimSpace(name))
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Rule{}, services.Wrap(services.ErrNotFound, "rules", "get rule", fmt.Sprintf("rule %q not found", name), nil)
	}
	if err != nil {
		return Rule{}, fmt.Errorf("get rule by name: %w", err)
	}
	return rule, nil
}

// List returns all rules ordered by name. When enabledOnly is set, disabled
// rules are excluded.
func (s *Store) List(ctx context.Context, enabledOnly bool) ([]Rule, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + ruleColumns + " FROM rules"
	if enabledOnly {
		query += " WHERE enabled = 1"
	}
	query += " ORDER BY name COLLATE NOCASE"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var list []Rule
	for rows.Next() {
		rule, scanErr := scanRule(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan rule: %w", scanErr)
		}
		list = append(list, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return list, nil
}

// RememberChoice records the rule the user picked for a referrer host,
// replacing any earlier choice for that host.
func (s *Store) RememberChoice(ctx context.Context, host, ruleName string) error {
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return services.Wrap(services.ErrValidation, "rules", "remember choice", "host is required", nil)
	}
	now := time.Now().UTC()
	_, err := s.execWithRetry(ctx,
		"INSERT INTO remembered_choices (host, rule_name, updated_at) VALUES (?, ?, ?) "+
			"ON CONFLICT(host) DO UPDATE SET rule_name = excluded.rule_name, updated_at = excluded.updated_at",
		host, ruleName, now.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("remember choice: %w", err)
	}
	return nil
}

// RecalledChoice returns the remembered rule name for a referrer host, if
// one exists.
func (s *Store) RecalledChoice(ctx context.Context, host string) (string, bool, error) {
	ctx = ensureContext(ctx)
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return "", false, nil
	}
	var ruleName string
	err := s.db.QueryRowContext(ctx, "SELECT rule_name FROM remembered_choices WHERE host = ?", host).Scan(&ruleName)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("recall choice: %w", err)
	}
	return ruleName, true, nil
}

// ForgetChoice clears the remembered rule for a host. Forgetting an unknown
// host is not an error.
func (s *Store) ForgetChoice(ctx context.Context, host string) error {
	host = strings.TrimSpace(strings.ToLower(host))
	_, err := s.execWithRetry(ctx, "DELETE FROM remembered_choices WHERE host = ?", host)
	if err != nil {
		return fmt.Errorf("forget choice: %w", err)
	}
	return nil
}

// RememberedChoices lists all host-to-rule memories ordered by host.
func (s *Store) RememberedChoices(ctx context.Context) ([]RememberedChoice, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT host, rule_name, updated_at FROM remembered_choices ORDER BY host")
	if err != nil {
		return nil, fmt.Errorf("list remembered choices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var list []RememberedChoice
	for rows.Next() {
		var (
			choice    RememberedChoice
			updatedAt string
		)
		if err := rows.Scan(&choice.Host, &choice.RuleName, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan remembered choice: %w", err)
		}
		choice.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		list = append(list, choice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate remembered choices: %w", err)
	}
	return list, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
