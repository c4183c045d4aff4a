package template

import "fmt"

// Placeholder comments substituted for script and style tags during parsing.
// Style placeholders are later replaced by inline <style> blocks; script
// placeholders stay in the markup as inert comments because scripts are
// executed programmatically, never re-injected.

// ScriptPlaceholder marks where an external script tag was removed.
func ScriptPlaceholder(src string) string {
	return fmt.Sprintf("<!-- script %s replaced by htmlentry -->", src)
}

// InlineScriptPlaceholder marks where an inline script tag was removed.
func InlineScriptPlaceholder() string {
	return "<!-- inline scripts replaced by htmlentry -->"
}

// IgnoredScriptPlaceholder marks a script tag skipped via the ignore attribute.
func IgnoredScriptPlaceholder(src string) string {
	return fmt.Sprintf("<!-- ignored script %s -->", src)
}

// StylePlaceholder marks where an external stylesheet link was removed.
func StylePlaceholder(href string) string {
	return fmt.Sprintf("<!-- link %s replaced by htmlentry -->", href)
}

// InlineStylePlaceholder marks the position of the i-th inline style
// descriptor of an explicit config.
func InlineStylePlaceholder(i int) string {
	return fmt.Sprintf("<!-- style %d replaced by htmlentry -->", i)
}

// IgnoredStylePlaceholder marks a stylesheet link skipped via the ignore
// attribute.
func IgnoredStylePlaceholder(href string) string {
	return fmt.Sprintf("<!-- ignored link %s -->", href)
}
