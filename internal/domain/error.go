package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid exec context")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrLockBusy           = errors.New("resource is locked")

	// Wallet / billing errors
	ErrInvalidAmount            = errors.New("invalid amount")
	ErrInvalidPlan              = errors.New("invalid subscription plan")
	ErrInvalidPackage           = errors.New("invalid token package")
	ErrInsufficientBalance      = errors.New("insufficient wallet balance")
	ErrActiveSubscriptionExists = errors.New("an active subscription already exists")
	ErrPaymentNotPending        = errors.New("payment is not pending")
	ErrGatewayUnavailable       = errors.New("payment gateway unavailable")
)

// GatewayError carries the provider's own code and message so callers can tell
// an amount mismatch from a disabled merchant or a timeout.
type GatewayError struct {
	Op          string // request | verify
	Code        int
	Message     string
	Unreachable bool
	Err         error
}

func (e *GatewayError) Error() string {
	if e.Unreachable {
		return fmt.Sprintf("gateway %s unreachable: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gateway %s failed: code=%d message=%s", e.Op, e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrGatewayUnavailable) match transport failures.
func (e *GatewayError) Is(target error) bool {
	return target == ErrGatewayUnavailable && e.Unreachable
}

// ActiveSubscriptionError is returned when a purchase is blocked by a subscription
// that still has more than the eligibility window left.
type ActiveSubscriptionError struct {
	DaysRemaining int
}

func (e *ActiveSubscriptionError) Error() string {
	return fmt.Sprintf("%s: %d days remaining", ErrActiveSubscriptionExists, e.DaysRemaining)
}

func (e *ActiveSubscriptionError) Is(target error) bool {
	return target == ErrActiveSubscriptionExists
}
