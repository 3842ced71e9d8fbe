// Package manifest owns the declared package list.
//
// Ownership boundary:
// - PackageSpec shape and validation
// - TOML manifest decoding/encoding
// - the embedded default manifest
package manifest
