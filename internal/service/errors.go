package service

import "errors"

var (
	ErrNotFound         = errors.New("contract not found")
	ErrMissingSignature = errors.New("professional signature not on file")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStateConflict    = errors.New("contract is not pending")
	ErrExpired          = errors.New("contract link expired")
	ErrNotReady         = errors.New("contract not finalized yet")
	ErrPermissionDenied = errors.New("permission denied")
)
