package services

import "errors"

var (
	// ErrPaymentVerificationFailed means the claimed payment signature did
	// not match. Never retried automatically.
	ErrPaymentVerificationFailed = errors.New("payment verification failed")

	ErrPlanNotFound     = errors.New("plan not found")
	ErrBusinessNotFound = errors.New("business not found")

	// ErrDuplicateActiveSubscription means the business already holds a
	// live subscription; the caller must cancel or wait.
	ErrDuplicateActiveSubscription = errors.New("business already has an active subscription")

	ErrUnauthorized = errors.New("requester does not own this subscription")

	// ErrProjectionInconsistent means the ledger write landed but the
	// business projection did not. The entitlement exists and a
	// reconciliation marker was stored; the caller must not treat the
	// purchase as fully visible yet.
	ErrProjectionInconsistent = errors.New("subscription recorded but listing projection failed")
)
