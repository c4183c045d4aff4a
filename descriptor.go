package htmlentry

import "strings"

// ScriptKind discriminates the script descriptor union. The kind is decided
// once at parse time and never re-inferred during execution.
type ScriptKind int

const (
	// ScriptInline carries its source text directly.
	ScriptInline ScriptKind = iota
	// ScriptRemote is fetched from Src and executed in document order.
	ScriptRemote
	// ScriptAsyncRemote is fetched eagerly off the caller's call stack and
	// executed whenever its text arrives, without blocking later scripts.
	ScriptAsyncRemote
)

// Script describes one script resource in document order.
type Script struct {
	Kind        ScriptKind
	Src         string // absolute location, empty for inline
	Code        string // inline source text
	CrossOrigin string // crossorigin attribute for async remote scripts
	NoModule    bool   // parsed but skipped at execution time
}

// IsEntry reports whether this script matches the entry identifier.
func (s Script) IsEntry(entry string) bool {
	return entry != "" && s.Kind != ScriptInline && s.Src == entry
}

// A style descriptor is a plain string: either literal inline markup
// (beginning with "<") or a remote location. Order matters only for cache
// lookups and placeholder substitution, not execution.

// isInlineStyle reports whether a style descriptor is literal markup rather
// than a remote location.
func isInlineStyle(descriptor string) bool {
	return strings.HasPrefix(strings.TrimSpace(descriptor), "<")
}
