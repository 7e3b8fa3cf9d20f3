package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrTaskRequired     = errors.New("task is required")
	ErrTaskIDRequired   = errors.New("task id is required")
	ErrWorkerIDRequired = errors.New("worker id is required")
	ErrRecordRequired   = errors.New("activity record is required")
	ErrTxRequired       = errors.New("transaction is required")
)
