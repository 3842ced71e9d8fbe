// Package pkgdb is the host package database boundary used by provisioning.
//
// Ownership boundary:
// - Database capability (query + install)
// - dpkg/apt backend over a tools.CommandRunner
// - in-memory backend
// - package manager error sentinels
package pkgdb
