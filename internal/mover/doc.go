// Package mover relocates completed downloads to destinations outside the
// browser's downloads tree. The browser API can only place files inside its
// own directory, so the decision engine defers absolute destinations here:
// the mover watches the downloads directory, waits for the file to settle,
// and moves it with a cross-device copy fallback and collision uniquifying.
package mover
