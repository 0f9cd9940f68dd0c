package config

import "errors"

var (
	// ErrConfigFileNotFound is returned when the config file does not exist
	ErrConfigFileNotFound = errors.New("configuration file not found")

	// ErrUnsupportedFormat is returned for config files that are neither YAML nor JSON
	ErrUnsupportedFormat = errors.New("unsupported config file format (supported: .yaml, .yml, .json)")

	// ErrEnvFileNotFound is returned when the configured dotenv file does not exist
	ErrEnvFileNotFound = errors.New("env file not found")

	// ErrProxyTokenRequired is returned when the shared proxy token is not set
	ErrProxyTokenRequired = errors.New("proxy token is required")

	// ErrInvalidPort is returned for a port outside 0-65535
	ErrInvalidPort = errors.New("port must be between 0 and 65535")

	// ErrInvalidHealthPath is returned when the health path is not absolute
	ErrInvalidHealthPath = errors.New("health path must start with '/'")

	// ErrHealthPathConflict is returned when the health path starts with a service name
	ErrHealthPathConflict = errors.New("health path would shadow service routes")

	// ErrInvalidTimeout is returned for an unparsable upstream timeout
	ErrInvalidTimeout = errors.New("invalid upstream timeout")
)
