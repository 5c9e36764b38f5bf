// Package decision turns download events into placement suggestions. The
// engine scores the filename first, then gathers page evidence through the
// tab registry and keyword cache, and resolves disagreement in a fixed
// order: remembered per-host choices, the external oracle, per-signal
// thresholds, and finally an interactive prompt with a timeout. A download
// with no signal at all keeps the browser default silently.
package decision
