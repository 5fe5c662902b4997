package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrSignatureMismatch  = errors.New("payment signature mismatch")
	ErrPaymentRequired    = errors.New("payment not verified for this order")
	ErrLinkExpired        = errors.New("download link expired or already used")
	ErrInvalidCoupon      = errors.New("coupon not valid for this package")
	ErrInvalidPackage     = errors.New("unknown package type")
	ErrInvalidAmount      = errors.New("invalid payment amount")
	ErrFileMissing        = errors.New("product file not available")
	ErrGatewayUnavailable = errors.New("payment gateway not configured")
	ErrTokenConsumed      = errors.New("download token already consumed")
	ErrLockBusy           = errors.New("resource is locked by another request")

	// Infrastructure errors surfaced by repositories
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid transaction context")
)
