// Package observability exports provisioning metrics.
package observability
