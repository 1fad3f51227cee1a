// Package dedupe suppresses repeated and stale requests.
//
// Cache replays the stored response for a retried mutation carrying the same
// Idempotency-Key. Supersede keeps one in-flight request per key and cancels
// the older one when a newer request arrives.
package dedupe

import "errors"

// ErrSuperseded is the cancellation cause for a request replaced by a newer one.
var ErrSuperseded = errors.New("superseded by a newer request")
