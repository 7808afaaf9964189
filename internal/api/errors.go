package api

import (
	"errors"
	"fmt"
	"strings"
)

// NetworkError means no usable response came back: transport failure,
// unexpected HTTP status, undecodable body or server-side query errors.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError is a structured failure reported by the server
// (success:false). Messages are shown verbatim in the originating form.
type ValidationError struct {
	Op       string
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("%s failed", e.Op)
	}
	return strings.Join(e.Messages, "; ")
}

// NotFoundError means a query for a specific id resolved to null.
type NotFoundError struct {
	Op      string
	Vars    Vars
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: not found: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: not found", e.Op)
}

// GraphQLError is one entry of a GraphQL response's errors array.
type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// GraphQLErrors is the errors array of a GraphQL response.
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, ge := range e {
		msgs = append(msgs, ge.Message)
	}
	return strings.Join(msgs, "; ")
}

// Messages returns the individual error messages.
func (e GraphQLErrors) Messages() []string {
	msgs := make([]string, 0, len(e))
	for _, ge := range e {
		msgs = append(msgs, ge.Message)
	}
	return msgs
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNetwork reports whether err is (or wraps) a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// ErrorMessages flattens an error into user-facing lines: the server's
// messages for a ValidationError, the error text otherwise.
func ErrorMessages(err error) []string {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) && len(ve.Messages) > 0 {
		return append([]string(nil), ve.Messages...)
	}
	return []string{err.Error()}
}
