package gateway

import (
	"fmt"

	"github.com/urmzd/deconz2z2m/pkg/device"
)

// ConnectionError reports an unreachable gateway or an unexpected probe status.
type ConnectionError struct {
	Address string
	Status  int // HTTP status, 0 on transport failure
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("gateway %s answered HTTP %d", e.Address, e.Status)
	}
	return fmt.Sprintf("gateway %s unreachable: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == device.ErrConnection }

// AuthError reports a rejected credential or a failed pairing request.
type AuthError struct {
	Status      int    // HTTP status, 0 when the gateway answered with an error body
	Description string // gateway error description, if any
	LinkButton  bool   // the gateway asked for its link button to be pressed
	Err         error
}

func (e *AuthError) Error() string {
	switch {
	case e.Description != "":
		return fmt.Sprintf("authentication failed: %s", e.Description)
	case e.Status != 0:
		return fmt.Sprintf("authentication failed: HTTP %d", e.Status)
	case e.Err != nil:
		return fmt.Sprintf("authentication failed: %v", e.Err)
	}
	return "authentication failed"
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == device.ErrAuth }

// DatabaseNotFoundError reports a missing or irregular deCONZ database file.
type DatabaseNotFoundError struct {
	Path string
	Err  error
}

func (e *DatabaseNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("deCONZ database not found at %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("deCONZ database not found at %s", e.Path)
}

func (e *DatabaseNotFoundError) Unwrap() error { return e.Err }

func (e *DatabaseNotFoundError) Is(target error) bool { return target == device.ErrDatabaseNotFound }

// FetchError reports a failed or malformed gateway response.
type FetchError struct {
	Resource string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.Resource, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == device.ErrFetch }
