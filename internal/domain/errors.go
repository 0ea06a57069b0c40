package domain

import "errors"

var (
	ErrCardNotFound      = errors.New("card not found")
	ErrAccountNotFound   = errors.New("account not found")
	ErrTransient         = errors.New("storage temporarily unavailable")
	ErrRetriesExhausted  = errors.New("chunk retries exhausted")
	ErrSkipLimitExceeded = errors.New("skip limit exceeded")
	ErrIllegalTransition = errors.New("illegal record state transition")
	ErrNotAuthorized     = errors.New("transaction not authorized for posting")
)
