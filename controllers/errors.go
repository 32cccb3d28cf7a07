package controllers

import "errors"

var (
	ErrNoPermission    = errors.New("you do not have permission")
	ErrVersionConflict = errors.New("resource was modified by someone else, refresh and retry")
)

// unprocessableError marks a request that is well-formed but violates a
// business rule; respondFlowError maps it to 422.
type unprocessableError struct {
	msg string
}

func (e *unprocessableError) Error() string {
	return e.msg
}

func unprocessable(msg string) error {
	return &unprocessableError{msg: msg}
}
