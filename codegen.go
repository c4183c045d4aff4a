package htmlentry

import (
	"regexp"
	"strings"
)

// defaultScopedGlobals are pre-declared as locals in strict-global mode so
// hot global names short-circuit the dynamic with() lookup instead of paying
// a property trap on every access.
var defaultScopedGlobals = []string{
	"Array", "ArrayBuffer", "Boolean", "console", "Date", "Error",
	"Function", "JSON", "Map", "Math", "Number", "Object", "Promise",
	"Proxy", "Reflect", "RegExp", "Set", "String", "Symbol", "WeakMap",
	"document", "fetch", "history", "localStorage", "location",
	"navigator", "sessionStorage", "setInterval", "setTimeout",
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// wrapCode builds the executable wrapper for one script. Run with the
// sandbox bound as this, the wrapper rebinds window, self and globalThis to
// the sandbox. Strict-global mode additionally routes every free-variable
// lookup through the sandbox via with(); the scoped globals are declared in
// a scope inner to the with block so they shadow its lookup. src annotates
// stack traces and is omitted for inline scripts.
func wrapCode(src, code string, strictGlobal bool, scopedGlobals []string) string {
	var b strings.Builder

	b.WriteString(";(function(window, self, globalThis){")
	if strictGlobal {
		b.WriteString("with(window){(function(){")
		writeScopedDecls(&b, scopedGlobals)
	}
	b.WriteString(";")
	b.WriteString(code)
	b.WriteString("\n")
	if src != "" {
		b.WriteString("//# sourceURL=")
		b.WriteString(src)
		b.WriteString("\n")
	}
	if strictGlobal {
		b.WriteString("}).call(window);}")
	}
	b.WriteString("}).bind(")
	b.WriteString(sandboxRef)
	b.WriteString(")(")
	b.WriteString(sandboxRef)
	b.WriteString(", ")
	b.WriteString(sandboxRef)
	b.WriteString(", ")
	b.WriteString(sandboxRef)
	b.WriteString(");")

	return b.String()
}

// writeScopedDecls emits `var name = this["name"], ...;` for the combined
// default and caller-supplied scoped global names.
func writeScopedDecls(b *strings.Builder, extra []string) {
	names := make([]string, 0, len(defaultScopedGlobals)+len(extra))
	seen := make(map[string]bool, cap(names))
	for _, n := range append(append([]string{}, defaultScopedGlobals...), extra...) {
		if !identifierPattern.MatchString(n) || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	if len(names) == 0 {
		return
	}

	b.WriteString("var ")
	for i, n := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(n)
		b.WriteString(` = this["`)
		b.WriteString(n)
		b.WriteString(`"]`)
	}
	b.WriteString(";")
}
