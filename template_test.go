package htmlentry

import (
	"context"
	"strings"
	"testing"

	"github.com/entrykit/htmlentry/internal/template"
)

func TestEmbedStylesRemote(t *testing.T) {
	files := map[string]string{
		"http://fixture/a.css": "body { margin: 0; }",
		"http://fixture/b.css": ".b { color: blue; }",
	}
	l := newTestLoader(t, files, nil)

	styles := []string{"http://fixture/a.css", "http://fixture/b.css"}
	tpl := template.StylePlaceholder(styles[0]) + "<div></div>" + template.StylePlaceholder(styles[1])

	embedded, err := l.embedStyles(context.Background(), tpl, styles)
	if err != nil {
		t.Fatalf("embedStyles: %v", err)
	}

	want := "<style>body { margin: 0; }</style><div></div><style>.b { color: blue; }</style>"
	if embedded != want {
		t.Errorf("embedded = %q, want %q", embedded, want)
	}
}

func TestEmbedStylesInlinePassThrough(t *testing.T) {
	l := newTestLoader(t, nil, nil)

	styles := []string{"<style>.x { top: 0; }</style>"}
	tpl := template.InlineStylePlaceholder(0) + "<div></div>"

	embedded, err := l.embedStyles(context.Background(), tpl, styles)
	if err != nil {
		t.Fatalf("embedStyles: %v", err)
	}
	if !strings.HasPrefix(embedded, "<style>.x { top: 0; }</style>") {
		t.Errorf("inline style not passed through: %q", embedded)
	}
}

func TestEmbedStylesFetchFailureFailsLoad(t *testing.T) {
	l := newTestLoader(t, nil, nil)

	styles := []string{"http://fixture/missing.css"}
	_, err := l.embedStyles(context.Background(), template.StylePlaceholder(styles[0]), styles)
	if err == nil {
		t.Fatal("expected error for missing stylesheet")
	}
}

func TestInlineContent(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{"style tag", "<style>.a{}</style>", ".a{}"},
		{"script tag", "<script>init()</script>", "init()"},
		{"empty element", "<style></style>", ""},
		{"not markup", "plain text", "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inlineContent(tt.markup); got != tt.want {
				t.Errorf("inlineContent(%q) = %q, want %q", tt.markup, got, tt.want)
			}
		})
	}
}

func TestIsInlineStyle(t *testing.T) {
	if !isInlineStyle("  <style>.a{}</style>") {
		t.Error("leading whitespace markup not detected as inline")
	}
	if isInlineStyle("http://x/a.css") {
		t.Error("location detected as inline")
	}
}
