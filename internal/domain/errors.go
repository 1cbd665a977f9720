package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrValidation       = errors.New("invalid input")
	ErrConflict         = errors.New("conflicting draft state")
	ErrTurnViolation    = errors.New("not your turn")
	ErrPickLimit        = errors.New("session pick limit reached")
	ErrAlreadyResolved  = errors.New("pick already resolved")
	ErrAlreadySettled   = errors.New("league already settled")
	ErrNoPositivePoints = errors.New("no positive points to distribute")
	ErrLedgerFailed     = errors.New("ledger settlement failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrRateLimited      = errors.New("rate limited")
	ErrLockHeld         = errors.New("lock already held")
)
