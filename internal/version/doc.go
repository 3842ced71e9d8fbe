// Package version implements Debian package version ordering and the
// relation operators used to constrain installed versions.
//
// Ownership boundary:
// - dpkg version parsing and comparison
// - version constraints
package version
