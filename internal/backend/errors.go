package backend

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedAuthMode is returned for a credential mode the transport was
// not configured for.
var ErrUnsupportedAuthMode = errors.New("unsupported auth mode")

// Location is a position in the GraphQL document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// ErrorDetail is one entry of a GraphQL response's errors array.
type ErrorDetail struct {
	Message   string     `json:"message"`
	ErrorType string     `json:"errorType,omitempty"`
	Path      []any      `json:"path,omitempty"`
	Locations []Location `json:"locations,omitempty"`
}

// GraphQLError is returned when the backend answers with errors.
type GraphQLError struct {
	Operation string
	Errors    []ErrorDetail
}

func (e *GraphQLError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, d := range e.Errors {
		if d.ErrorType != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s", d.ErrorType, d.Message))
			continue
		}
		msgs = append(msgs, d.Message)
	}
	return fmt.Sprintf("graphql %s: %s", e.Operation, strings.Join(msgs, "; "))
}

// HTTPError is returned for non-200 responses.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned %s", e.Status)
	}
	return fmt.Sprintf("backend returned %s: %s", e.Status, e.Body)
}
