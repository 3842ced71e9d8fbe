// Package provision brings a host's installed package set into line with a
// declared manifest.
//
// Ownership boundary:
// - the sequential provisioning loop (query, install, verify)
// - per-package outcome classification and the run report
// - retry of transient package manager lock contention
//
// Host-level mutual exclusion is the caller's job (see internal/hostlock).
package provision
