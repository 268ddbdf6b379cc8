package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrUnauthenticated  = errors.New("caller is not authenticated")
	ErrPermissionDenied = errors.New("action requires administrator rights")
	ErrLockHeld         = errors.New("lock already held")
	ErrJobFinished      = errors.New("settlement job already finished")
	ErrNotSettled       = errors.New("no successful settlement pass yet")
)
