package htmlentry

import (
	"errors"
	"fmt"
)

// ErrNoFetcher is returned by New when no fetch capability could be
// constructed. Loading anything without one is impossible, so callers
// should treat this as fatal.
var ErrNoFetcher = errors.New("htmlentry: fetch capability required")

// ConfigError reports an invalid explicit entry configuration.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("htmlentry: invalid entry config: %s", e.Reason)
}

// FetchError reports a failed network fetch or decode for a resource.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("htmlentry: fetch %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("htmlentry: fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExecError reports a script execution failure. Entry marks the fatal
// variant: an entry script failure rejects the whole execution, while
// non-entry failures are reported out of band and siblings keep running.
type ExecError struct {
	Src   string
	Entry bool
	Err   error
}

func (e *ExecError) Error() string {
	src := e.Src
	if src == "" {
		src = "<inline script>"
	}
	if e.Entry {
		return fmt.Sprintf("htmlentry: entry script %s: %v", src, e.Err)
	}
	return fmt.Sprintf("htmlentry: script %s: %v", src, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }
