// Package hostlock serializes provisioning runs on one host with an flock(2)
// advisory lock.
package hostlock
