package grace

import "fmt"

// Error is a failure that tells the user what went wrong and how to fix it
type Error interface {
	error

	WhatExpected() string
	WhatHappened() string
	WhatToDo() string
}

type ActionableError struct {
	expected     string
	got          string
	callToAction string
	cause        error
}

func (e *ActionableError) WhatExpected() string {
	return e.expected
}

func (e *ActionableError) WhatHappened() string {
	return e.got
}

func (e *ActionableError) WhatToDo() string {
	return e.callToAction
}

func (e *ActionableError) Unwrap() error {
	return e.cause
}

func (e *ActionableError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("expected: %s, got: %s (%v); What to do: %s", e.expected, e.got, e.cause, e.callToAction)
	}
	return fmt.Sprintf("expected: %s, got: %s; What to do: %s", e.expected, e.got, e.callToAction)
}

func RaiseError(
	expected, got, cta string,
) Error {
	return &ActionableError{
		expected:     expected,
		got:          got,
		callToAction: cta,
	}
}

// WrapError is RaiseError that keeps the underlying error available to errors.Is
func WrapError(
	cause error, expected, got, cta string,
) Error {
	return &ActionableError{
		expected:     expected,
		got:          got,
		callToAction: cta,
		cause:        cause,
	}
}
