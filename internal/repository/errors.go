// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// ledger and the bot handlers to distinguish between failure scenarios
// with errors.Is instead of string matching.
package repository

import "errors"

// ErrNoAllowance is returned by the consume operation when neither free nor
// premium allowance remains for the platform. Callers that gate on a prior
// allowance check should treat this as a caller error, but it is still
// returned rather than panicking because two concurrent requests can race
// past the same read-only check.
var ErrNoAllowance = errors.New("no allowance remaining")

// ErrUnknownPlatform is returned when an operation names a platform that is
// not part of the configured platform table.
var ErrUnknownPlatform = errors.New("unknown platform")

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")
