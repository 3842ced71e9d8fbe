// Command depctl provisions the system packages the player depends on.
//
// With no arguments it installs whatever the built-in manifest lists and the
// host lacks, one package at a time, under a host-wide lock.
package main
