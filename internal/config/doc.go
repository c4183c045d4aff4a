// Package config loads loader configuration from environment variables.
package config
