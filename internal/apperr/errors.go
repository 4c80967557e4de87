package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidCategory = errors.New("invalid category")
	ErrNoValidFiles    = errors.New("no valid files")
	ErrInvalidUpload   = errors.New("invalid upload")
)
