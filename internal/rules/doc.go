// Package rules persists routing rules and remembered per-host choices in a
// SQLite database. Each rule names a category, its destination folder, and
// the keywords that vote for it during scoring.
package rules
