package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Stable error codes surfaced to callers, distinct from the
// human-readable message.
const (
	CodeQuotaExceeded   = "quota_exceeded"
	CodeSynthesisFailed = "synthesis_failed"
	CodeNotFound        = "not_found"
	CodeInvalidRequest  = "invalid_request"
)

// ErrInvalidRequest marks a caller-supplied request that fails
// validation before any pipeline work starts.
var ErrInvalidRequest = eris.New("invalid request")

// ErrNotFound is returned when an entity does not exist for the requesting
// account. A cross-account hit is reported identically to a miss.
var ErrNotFound = eris.New("not found")

// QuotaError denies an expensive operation pre-flight. It carries the
// quota metadata so the caller can display a reset time.
type QuotaError struct {
	Quota UsageQuota
}

func (e *QuotaError) Error() string {
	if e.Quota.Degraded {
		return fmt.Sprintf("monthly analysis quota unavailable, denying (resets %s)",
			e.Quota.PeriodEnd.Format("2006-01-02"))
	}
	return fmt.Sprintf("monthly analysis quota exceeded (%d/%d used, resets %s)",
		e.Quota.Used, e.Quota.Limit, e.Quota.PeriodEnd.Format("2006-01-02"))
}

// Code returns the stable error code.
func (e *QuotaError) Code() string { return CodeQuotaExceeded }

// SynthesisError is a fatal reasoning-engine failure: a malformed or
// empty response with no fallback. The underlying message is retained
// for diagnostics only.
type SynthesisError struct {
	Stage string // "analysis" or "plan"
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed during %s: %v", e.Stage, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Code returns the stable error code.
func (e *SynthesisError) Code() string { return CodeSynthesisFailed }
