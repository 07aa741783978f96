package api

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when a request exceeds the client timeout
	ErrTimeout = errors.New("request timed out, please try again")
	// ErrNotAuthenticated is returned for 401 responses
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotFound is returned for 404 responses
	ErrNotFound = errors.New("not found")
)

// Error is a failed response from the backend
type Error struct {
	StatusCode int
	Category   string
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// Is lets errors.Is match the status sentinels
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotAuthenticated:
		return e.StatusCode == 401
	case ErrNotFound:
		return e.StatusCode == 404
	}
	return false
}

func unknownError(status int) string {
	return fmt.Sprintf("unknown error [%d]", status)
}
