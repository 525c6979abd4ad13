package models

// Status tags the outcome of a dispatch.
type Status int

const (
	// StatusFailed means the call did not succeed. Err is set.
	StatusFailed Status = iota
	// StatusEmpty means the call succeeded and the backend returned nothing.
	StatusEmpty
	// StatusFound means the call succeeded with data.
	StatusFound
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusFound:
		return "found"
	default:
		return "failed"
	}
}

// Result separates "the call failed" from "the call found nothing".
type Result[T any] struct {
	Status Status
	Value  T
	Err    error
}

// Found wraps a successful value.
func Found[T any](v T) Result[T] {
	return Result[T]{Status: StatusFound, Value: v}
}

// Empty wraps a successful call that returned no data. The value is kept so
// list results can still carry a non-nil empty slice.
func Empty[T any](v T) Result[T] {
	return Result[T]{Status: StatusEmpty, Value: v}
}

// Failed wraps an error.
func Failed[T any](err error) Result[T] {
	return Result[T]{Status: StatusFailed, Err: err}
}

// OK reports whether the call succeeded, with or without data.
func (r Result[T]) OK() bool {
	return r.Status != StatusFailed
}
