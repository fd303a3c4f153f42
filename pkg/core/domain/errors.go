// Package domain defines the categorical errors shared by the market core.
// Every operation fails with exactly one of these sentinels (possibly
// wrapped); callers branch with errors.Is.
package domain

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the required
	// capability (administrator or oracle).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when a referenced market or position does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPrediction is returned for an unrecognized direction, or
	// when a losing position attempts to claim.
	ErrInvalidPrediction = errors.New("invalid prediction")

	// ErrMarketInactive is returned when an operation is attempted outside
	// its valid temporal window.
	ErrMarketInactive = errors.New("market inactive")

	// ErrAlreadyClaimed is returned on a duplicate claim attempt.
	ErrAlreadyClaimed = errors.New("rewards already claimed")

	// ErrPositionExists is returned when a participant attempts a second
	// position on the same market.
	ErrPositionExists = errors.New("position already exists")

	// ErrInsufficientFunds is returned when the escrow debit cannot be
	// satisfied.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidParameters is returned for malformed numeric or temporal
	// arguments.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrMarketUnresolved is returned when a claim is attempted before
	// resolution.
	ErrMarketUnresolved = errors.New("market not resolved")

	// ErrInvalidState is returned when a resolved market has no valid
	// claimants (zero stake on the winning side).
	ErrInvalidState = errors.New("invalid market state")
)
