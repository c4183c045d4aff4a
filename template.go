package htmlentry

import (
	"context"
	"strings"

	"github.com/entrykit/htmlentry/internal/template"
	"golang.org/x/sync/errgroup"
)

// embedStyles substitutes each style placeholder in tpl with literal inline
// markup: inline descriptors pass through as-is, remote descriptors become a
// <style> block wrapping the fetched text. All remote styles resolve
// concurrently; one failure aborts the embed and fails the load.
func (l *Loader) embedStyles(ctx context.Context, tpl string, styles []string) (string, error) {
	blocks := make([]string, len(styles))

	g, gctx := errgroup.WithContext(ctx)
	for i, descriptor := range styles {
		if isInlineStyle(descriptor) {
			blocks[i] = descriptor
			continue
		}
		g.Go(func() error {
			text, err := l.resolveStyle(gctx, descriptor)
			if err != nil {
				return err
			}
			blocks[i] = "<style>" + text + "</style>"
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	for i, descriptor := range styles {
		placeholder := template.StylePlaceholder(descriptor)
		if isInlineStyle(descriptor) {
			placeholder = template.InlineStylePlaceholder(i)
		}
		tpl = strings.Replace(tpl, placeholder, blocks[i], 1)
	}
	return tpl, nil
}

// resolveStyle resolves one style descriptor to its text. Inline literals
// yield their content directly; remote locations go through the style cache.
func (l *Loader) resolveStyle(ctx context.Context, descriptor string) (string, error) {
	if isInlineStyle(descriptor) {
		return inlineContent(descriptor), nil
	}
	return l.stores.Styles.Resolve(descriptor, func() (string, error) {
		return l.fetchTextWith(ctx, l.fetcher, "style", descriptor)
	})
}

// inlineContent extracts the inner text of a single-element markup literal
// such as "<style>.a{}</style>".
func inlineContent(markup string) string {
	open := strings.Index(markup, ">")
	end := strings.LastIndex(markup, "<")
	if open < 0 || end <= open {
		return markup
	}
	return markup[open+1 : end]
}
