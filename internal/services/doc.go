// Package services defines shared utilities consumed by the decision pipeline
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp download IDs and correlation identifiers for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that keep the
//     degrade-gracefully policy uniform: any tagged failure drops the pipeline
//     to its next less-informed tier instead of leaving a download unresolved.
package services
