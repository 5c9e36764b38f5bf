// Package tabcache keeps a bounded, time-evicting store of per-tab keyword
// statistics gathered from visited pages, including opener-tab inheritance
// for freshly opened tabs. The cache is in-memory only; it is not meant to
// survive a restart.
package tabcache
