package template

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrMultipleEntry is returned when more than one script carries the entry
// attribute.
var ErrMultipleEntry = errors.New("template declares more than one entry script")

// Script describes one script tag found in document order.
type Script struct {
	Src         string // absolute location, empty for inline
	Code        string // inline source text
	CrossOrigin string
	Async       bool
	NoModule    bool
}

// Parsed is the outcome of parsing an HTML entry document.
type Parsed struct {
	// Template is the document markup with script and stylesheet tags
	// replaced by comment placeholders.
	Template string
	// Scripts lists executable scripts in document order.
	Scripts []Script
	// Styles lists external stylesheet locations in document order.
	Styles []string
	// Entry is the location of the entry script, or empty.
	Entry string
	// PublicPath is the base used to resolve relative asset locations.
	PublicPath string
}

// executableTypes are the script type attribute values that denote runnable
// JavaScript. Anything else (JSON payloads, templates) is left in the markup.
var executableTypes = map[string]bool{
	"":                       true,
	"text/javascript":        true,
	"module":                 true,
	"application/javascript": true,
	"text/ecmascript":        true,
	"application/ecmascript": true,
}

// Parse extracts scripts and stylesheets from an HTML document, replacing
// their tags with placeholders. location is the document's own URL and seeds
// relative reference resolution; a <base href> tag overrides it.
func Parse(htmlText, location string) (*Parsed, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	for _, root := range doc.Nodes {
		stripComments(root)
	}

	base, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid template location %q: %w", location, err)
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if parsed, err := base.Parse(href); err == nil {
			base = parsed
		}
	}

	p := &Parsed{PublicPath: PublicPath(base)}

	doc.Find("link").Each(func(_ int, s *goquery.Selection) {
		if !strings.EqualFold(s.AttrOr("rel", ""), "stylesheet") {
			return
		}
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		abs := resolveRef(base, href)
		if abs == "" {
			return
		}
		if _, ignored := s.Attr("ignore"); ignored {
			s.ReplaceWithHtml(IgnoredStylePlaceholder(abs))
			return
		}
		p.Styles = append(p.Styles, abs)
		s.ReplaceWithHtml(StylePlaceholder(abs))
	})

	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		if _, ignored := s.Attr("ignore"); ignored {
			s.ReplaceWithHtml(IgnoredStylePlaceholder("inline"))
		}
	})

	var parseErr error
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if !executableTypes[strings.ToLower(s.AttrOr("type", ""))] {
			return
		}

		src, hasSrc := s.Attr("src")
		if _, ignored := s.Attr("ignore"); ignored {
			s.ReplaceWithHtml(IgnoredScriptPlaceholder(src))
			return
		}

		if !hasSrc || src == "" {
			code := strings.TrimSpace(s.Text())
			if code != "" {
				p.Scripts = append(p.Scripts, Script{Code: code})
			}
			s.ReplaceWithHtml(InlineScriptPlaceholder())
			return
		}

		abs := resolveRef(base, src)
		if abs == "" {
			s.ReplaceWithHtml(IgnoredScriptPlaceholder(src))
			return
		}

		_, async := s.Attr("async")
		_, nomodule := s.Attr("nomodule")
		p.Scripts = append(p.Scripts, Script{
			Src:         abs,
			CrossOrigin: s.AttrOr("crossorigin", ""),
			Async:       async,
			NoModule:    nomodule,
		})

		if _, isEntry := s.Attr("entry"); isEntry {
			if p.Entry != "" {
				parseErr = ErrMultipleEntry
				return
			}
			p.Entry = abs
		}

		s.ReplaceWithHtml(ScriptPlaceholder(abs))
	})
	if parseErr != nil {
		return nil, parseErr
	}

	// Default entry: the last remote, non-nomodule script in document order.
	if p.Entry == "" {
		for i := len(p.Scripts) - 1; i >= 0; i-- {
			if p.Scripts[i].Src != "" && !p.Scripts[i].NoModule {
				p.Entry = p.Scripts[i].Src
				break
			}
		}
	}

	var buf bytes.Buffer
	for _, root := range doc.Nodes {
		if err := html.Render(&buf, root); err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
	}
	p.Template = buf.String()

	return p, nil
}

// Synthesize builds a placeholder-bearing template for explicit configs:
// style placeholders precede the markup, script placeholders follow it.
func Synthesize(htmlText string, scripts, styles []string) string {
	var b strings.Builder
	for i, style := range styles {
		if strings.HasPrefix(strings.TrimSpace(style), "<") {
			b.WriteString(InlineStylePlaceholder(i))
		} else {
			b.WriteString(StylePlaceholder(style))
		}
	}
	b.WriteString(htmlText)
	for _, src := range scripts {
		b.WriteString(ScriptPlaceholder(src))
	}
	return b.String()
}

// PublicPath derives the asset base for a document location: its origin plus
// the directory of its path.
func PublicPath(base *url.URL) string {
	if base == nil || base.Host == "" {
		return "/"
	}
	dir := base.Path
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[:i+1]
	} else {
		dir = "/"
	}
	return fmt.Sprintf("%s://%s%s", base.Scheme, base.Host, dir)
}

// resolveRef resolves href against base, rejecting unsafe schemes.
func resolveRef(base *url.URL, href string) string {
	lower := strings.ToLower(strings.TrimSpace(href))
	if strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "javascript:") {
		return ""
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(parsed).String()
}

// stripComments removes HTML comment nodes so commented-out scripts and
// links are never collected.
func stripComments(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			stripComments(c)
		}
		c = next
	}
}
