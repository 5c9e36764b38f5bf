// Package logging wires slog handlers and shared helpers for daemon and CLI
// output. Console format favors a single human-scannable line per event;
// JSON format targets log shippers. Attr constructors and the standardized
// field keys keep structured output consistent across components.
package logging
