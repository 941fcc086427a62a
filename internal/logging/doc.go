// Package logging provides a unified logging interface for tilemanifest.
// It abstracts the underlying logging implementation, allowing consistent logging
// across the scheduler, the probes and the exists server while supporting
// multiple backends.
package logging
