package config

import "errors"

// Configuration validation errors
var (
	ErrNoSeedURL          = errors.New("seed URL is required")
	ErrInvalidSeedURL     = errors.New("seed URL must be absolute")
	ErrInvalidMaxRequests = errors.New("max_requests must be >= 0")
	ErrInvalidWait        = errors.New("wait and random_wait must be >= 0")
	ErrInvalidTimeout     = errors.New("timeout must be >= 0")
	ErrInvalidProfileSize = errors.New("profile_size must be >= 1")
	ErrInvalidLogLevel    = errors.New("invalid log level")
)
