package main

import (
	"errors"

	"github.com/iota-uz/iota-identity/modules/department/services"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
	exitConflict   = 5
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

// serviceCode picks the exit code for an error returned by the department service.
func serviceCode(err error) error {
	if err == nil {
		return nil
	}
	if services.IsValidation(err) || services.IsNotFound(err) {
		return withCode(exitValidation, err)
	}
	if services.IsConflict(err) {
		return withCode(exitConflict, err)
	}
	return withCode(exitDB, err)
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}
