// Command downsort is the management CLI for the downsort daemon: rule
// administration, daemon status, and notification checks.
package main
