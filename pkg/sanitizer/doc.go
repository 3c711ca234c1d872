// Package sanitizer normalizes user supplied text before it is validated
// and stored.
//
// All functions are idempotent: applying them twice yields the same result.
// Invalid input degrades to an empty string rather than an error so callers
// can run validation afterwards.
package sanitizer
