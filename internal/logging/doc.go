// Package logging provides the zap-based logger used across the module.
package logging
