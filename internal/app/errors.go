package service

import "errors"

// Sentinel errors returned by Service operations.
var (
	ErrLoadInputs      = errors.New("failed to load batch inputs")
	ErrBatchRunning    = errors.New("batch already running")
	ErrLockLost        = errors.New("batch lock lost")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)
