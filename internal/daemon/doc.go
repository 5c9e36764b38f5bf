// Package daemon hosts the long-running downsort process: the HTTP API the
// extension and prompt callbacks talk to, the decision engine behind it,
// and the mover for destinations outside the downloads tree. A file lock
// keeps the daemon single-instance per data directory.
package daemon
