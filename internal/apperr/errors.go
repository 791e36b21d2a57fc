package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrNoCursor      = errors.New("sync cursor not recoverable")
	ErrPartialApply  = errors.New("note deleted but not recreated")
	ErrFatal         = errors.New("fatal")
)
