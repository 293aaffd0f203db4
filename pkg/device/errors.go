package device

import "errors"

var (
	// ErrConnection indicates the gateway is unreachable or answered with an unexpected status
	ErrConnection = errors.New("gateway unreachable")

	// ErrAuth indicates the credential was rejected or pairing failed
	ErrAuth = errors.New("authentication failed")

	// ErrDatabaseNotFound indicates the local deCONZ database is missing
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrFetch indicates a malformed or failed gateway response
	ErrFetch = errors.New("fetch failed")

	// ErrValidation indicates a user-supplied value failed validation
	ErrValidation = errors.New("validation error")

	// ErrWrite indicates the configuration could not be serialized or written
	ErrWrite = errors.New("write failed")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")
)
