// Package tools provides host command execution for the package backends.
//
// Ownership boundary:
// - command execution helpers (local, sudo, ssh)
package tools
