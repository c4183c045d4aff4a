/*
Package template parses HTML entry documents into ordered script and style
descriptors plus a placeholder-bearing template string.

Script and stylesheet tags are replaced with comment placeholders; the style
placeholders are later substituted with inline <style> blocks while scripts
are executed programmatically. Document order is preserved: the order of the
Scripts slice is the order tags appear in the source markup.
*/
package template
