package postgres

import (
	"errors"
	"fmt"
)

// Errors returned by the connection factory. Callers should match them with errors.Is.
var (
	ErrConfiguration = errors.New("postgres: configuration error") // ErrConfiguration occurs when the configuration resource is missing, unreadable or malformed.
	ErrConnection    = errors.New("postgres: connection error")    // ErrConnection occurs when a connection cannot be opened.
	ErrDisconnect    = errors.New("postgres: disconnect error")    // ErrDisconnect occurs when the live connection fails to close.
)

func configurationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// connectionError keeps the driver error in the chain next to ErrConnection.
func connectionError(cfg *PgConfig, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrConnection, ConnectionURL(cfg), err)
}
