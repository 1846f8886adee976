// Package timeouts holds the deadlines this app imposes on itself.
//
// Stores take the caller's context as-is and add no deadline of their own,
// so the only bound owned here is the health ping.
package timeouts

import "time"

// DefaultPing bounds health checks and connectivity verification.
const DefaultPing = 2 * time.Second

// Ping returns the timeout for health checks.
func Ping() time.Duration { return DefaultPing }
