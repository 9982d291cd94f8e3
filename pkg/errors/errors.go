// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	// Policy errors
	ErrPolicyConfiguration = errors.New("compliance policy misconfigured")

	// Verification errors
	ErrVerificationExhausted = errors.New("all identity verification providers exhausted")
	ErrProviderTimeout       = errors.New("identity verification provider timed out")
	ErrProviderUnavailable   = errors.New("identity verification provider unavailable")
	ErrVerificationRequired  = errors.New("identity verification required for this amount")

	// Fee and disclosure errors
	ErrComplianceViolation   = errors.New("fee structure violates regulatory ceilings")
	ErrDisclosureNotAccepted = errors.New("fee disclosure has not been accepted")
	ErrDisclosureMissing     = errors.New("no fee disclosure on record for this session")

	// Monitoring errors
	ErrDuplicateSettlement = errors.New("settlement reference already recorded")
	ErrReportNotFound      = errors.New("transaction report not found")

	// Session errors
	ErrSessionNotFound    = errors.New("compliance session not found")
	ErrSessionBlocked     = errors.New("compliance session is blocked")
	ErrInvalidTransition  = errors.New("operation not valid in current session state")
	ErrInsufficientTier   = errors.New("verification tier does not cover transaction amount")
	ErrInvalidTier        = errors.New("invalid verification tier")
	ErrInvalidDateRange   = errors.New("invalid report date range")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrDuplicateRequest   = errors.New("duplicate request in flight")
)

// VerificationError describes a single provider failure inside the
// verification gateway. Failures are collected per provider so the final
// result can carry the full audit trail.
type VerificationError struct {
	Provider string
	Reason   string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Reason)
}

// ComplianceViolationError carries the itemized warnings produced by the
// fee review so callers can present per-ceiling remediation, never a
// generic message.
type ComplianceViolationError struct {
	Warnings []string
}

func (e *ComplianceViolationError) Error() string {
	if len(e.Warnings) == 0 {
		return ErrComplianceViolation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrComplianceViolation.Error(), strings.Join(e.Warnings, "; "))
}

func (e *ComplianceViolationError) Unwrap() error { return ErrComplianceViolation }

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
