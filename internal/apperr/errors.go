package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrBadInput    = errors.New("bad input")
	ErrUnavailable = errors.New("upstream unavailable")
)
