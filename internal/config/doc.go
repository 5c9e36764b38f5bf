// Package config loads, normalizes, and validates the TOML configuration for
// the downsort daemon and CLI. Thresholds of the decision engine live here on
// purpose: the per-signal bars are tuning knobs, not constants.
package config
