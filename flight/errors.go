package flight

import "errors"

var (
	// ErrInvalidConfig indicates Config validation failed.
	ErrInvalidConfig = errors.New("invalid flight server config")
	// ErrNilCatalog is returned when the server is created without a catalog.
	ErrNilCatalog = errors.New("catalog cannot be nil")
)
