// File: api/result.go
// Author: momentics <momentics@gmail.com>
//
// Generic result carrier for inline error propagation.

package api

// Result wraps any payload or error.
//
// Decode emits one Result per inbound frame so that a single bad frame
// does not hide the well-formed frames that follow it in the same buffer.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok wraps a value in a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail wraps an error in a failed Result.
func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}
