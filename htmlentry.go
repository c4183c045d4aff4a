package htmlentry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/entrykit/htmlentry/internal/config"
	"github.com/entrykit/htmlentry/internal/idle"
	"github.com/entrykit/htmlentry/internal/logging"
	"github.com/entrykit/htmlentry/internal/monitoring"
	"github.com/entrykit/htmlentry/internal/template"
	"golang.org/x/sync/errgroup"
)

// Loader fetches HTML entry documents and turns them into executable
// handles. Loaders are safe for concurrent use; all loaders created without
// WithStores share the process-wide resource caches.
type Loader struct {
	fetcher    Fetcher
	fetcherSet bool
	stores     *Stores
	log        *logging.Logger
	metrics    *monitoring.Metrics
	idle       *idle.Scheduler
	autoDecode bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithFetcher replaces the default fetch client.
func WithFetcher(f Fetcher) Option {
	return func(l *Loader) {
		l.fetcher = f
		l.fetcherSet = true
	}
}

// WithStores gives the loader its own cache family instead of the shared
// process-wide one.
func WithStores(s *Stores) Option {
	return func(l *Loader) { l.stores = s }
}

// WithLogger injects a logger; the default discards everything.
func WithLogger(log *logging.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(l *Loader) { l.metrics = m }
}

// WithAutoDecode toggles charset detection for fetched text.
func WithAutoDecode(auto bool) Option {
	return func(l *Loader) { l.autoDecode = auto }
}

// New creates a Loader. Without WithFetcher a default client is built from
// environment configuration; explicitly injecting a nil fetcher is the fatal
// startup error.
func New(opts ...Option) (*Loader, error) {
	cfg := config.LoadOrDefault()

	l := &Loader{
		stores:     defaultStores,
		log:        logging.NewNop(),
		idle:       idle.New(),
		autoDecode: cfg.Decode.Auto,
	}

	for _, opt := range opts {
		opt(l)
	}
	if l.fetcher == nil {
		if l.fetcherSet {
			return nil, ErrNoFetcher
		}
		l.fetcher = NewClient(cfg)
	}

	if l.metrics != nil {
		l.stores.Styles.instrument("style", l.metrics)
		l.stores.Scripts.instrument("script", l.metrics)
		l.stores.Pages.instrument("page", l.metrics)
	}

	return l, nil
}

// Config is the explicit entry description for config-driven loading.
// Scripts and Styles hold locations or literal inline markup; HTML is
// optional surrounding markup.
type Config struct {
	Scripts []string
	Styles  []string
	HTML    string
}

// Handle is the loadable unit produced by a load: the embedded template plus
// on-demand script resolution and execution.
type Handle struct {
	// Template is the document markup with stylesheets inlined and script
	// tags reduced to inert comments.
	Template string
	// AssetPublicPath is the base for resolving the application's own
	// relative asset references.
	AssetPublicPath string
	// Entry identifies the entry script, or is empty when there is none.
	Entry string

	scripts []Script
	styles  []string
	loader  *Loader
}

// Scripts returns the script descriptors in document order.
func (h *Handle) Scripts() []Script {
	out := make([]Script, len(h.scripts))
	copy(out, h.scripts)
	return out
}

// Styles returns the style descriptors.
func (h *Handle) Styles() []string {
	out := make([]string, len(h.styles))
	copy(out, h.styles)
	return out
}

// ExternalScripts resolves every script descriptor to its text, in document
// order. Async descriptors are fetched eagerly here as well.
func (h *Handle) ExternalScripts(ctx context.Context) ([]string, error) {
	texts := make([]string, len(h.scripts))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range h.scripts {
		if s.Kind == ScriptInline {
			texts[i] = s.Code
			continue
		}
		g.Go(func() error {
			text, err := h.loader.resolveScriptText(gctx, h.loader.fetcher, s.Src, nil)
			if err != nil {
				return err
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return texts, nil
}

// ExternalStyleSheets resolves every style descriptor to its text.
func (h *Handle) ExternalStyleSheets(ctx context.Context) ([]string, error) {
	texts := make([]string, len(h.styles))
	g, gctx := errgroup.WithContext(ctx)
	for i, descriptor := range h.styles {
		g.Go(func() error {
			text, err := h.loader.resolveStyle(gctx, descriptor)
			if err != nil {
				return err
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return texts, nil
}

// LoadHTML fetches the document at location, parses it into descriptors and
// embeds its stylesheets. The document fetch is memoized per location for
// the cache family's lifetime, failures included.
func (l *Loader) LoadHTML(ctx context.Context, location string) (*Handle, error) {
	text, err := l.stores.Pages.Resolve(location, func() (string, error) {
		return l.fetchTextWith(ctx, l.fetcher, "page", location)
	})
	if err != nil {
		return nil, err
	}

	parsed, err := template.Parse(text, location)
	if err != nil {
		return nil, fmt.Errorf("htmlentry: parse %s: %w", location, err)
	}

	embedded, err := l.embedStyles(ctx, parsed.Template, parsed.Styles)
	if err != nil {
		return nil, err
	}

	scripts := make([]Script, 0, len(parsed.Scripts))
	for _, s := range parsed.Scripts {
		scripts = append(scripts, convertScript(s))
	}

	return &Handle{
		Template:        embedded,
		AssetPublicPath: parsed.PublicPath,
		Entry:           parsed.Entry,
		scripts:         scripts,
		styles:          parsed.Styles,
		loader:          l,
	}, nil
}

// LoadEntry builds a handle from an explicit config instead of a fetched
// document. The implicit entry is the last remote script in the list. For a
// plain URL entry use LoadHTML.
func (l *Loader) LoadEntry(ctx context.Context, cfg Config) (*Handle, error) {
	if cfg.Scripts == nil && cfg.Styles == nil {
		return nil, &ConfigError{Reason: "entry must carry a scripts or styles list"}
	}

	tpl := template.Synthesize(cfg.HTML, cfg.Scripts, cfg.Styles)
	embedded, err := l.embedStyles(ctx, tpl, cfg.Styles)
	if err != nil {
		return nil, err
	}

	scripts := make([]Script, 0, len(cfg.Scripts))
	entry := ""
	for _, descriptor := range cfg.Scripts {
		if strings.HasPrefix(strings.TrimSpace(descriptor), "<") {
			scripts = append(scripts, Script{Kind: ScriptInline, Code: inlineContent(descriptor)})
			continue
		}
		scripts = append(scripts, Script{Kind: ScriptRemote, Src: descriptor})
		entry = descriptor
	}

	return &Handle{
		Template:        embedded,
		AssetPublicPath: "/",
		Entry:           entry,
		scripts:         scripts,
		styles:          cfg.Styles,
		loader:          l,
	}, nil
}

// fetchTextWith fetches and decodes one resource through the given fetcher.
func (l *Loader) fetchTextWith(ctx context.Context, fetcher Fetcher, kind, location string) (string, error) {
	start := time.Now()
	body, hdr, err := fetcher.Fetch(ctx, location)
	l.metrics.RecordFetch(kind, start, err)
	if err != nil {
		return "", err
	}
	return decodeText(body, hdr, l.autoDecode), nil
}

var (
	defaultLoaderOnce sync.Once
	defaultLoader     *Loader
	defaultLoaderErr  error
)

// Default returns the shared process-wide loader.
func Default() (*Loader, error) {
	defaultLoaderOnce.Do(func() {
		defaultLoader, defaultLoaderErr = New()
	})
	return defaultLoader, defaultLoaderErr
}

// LoadHTML loads location through the shared process-wide loader.
func LoadHTML(ctx context.Context, location string) (*Handle, error) {
	l, err := Default()
	if err != nil {
		return nil, err
	}
	return l.LoadHTML(ctx, location)
}

// LoadEntry loads an explicit config through the shared process-wide loader.
func LoadEntry(ctx context.Context, cfg Config) (*Handle, error) {
	l, err := Default()
	if err != nil {
		return nil, err
	}
	return l.LoadEntry(ctx, cfg)
}

// convertScript maps a parsed script to its descriptor union variant.
func convertScript(s template.Script) Script {
	switch {
	case s.Src == "":
		return Script{Kind: ScriptInline, Code: s.Code}
	case s.Async:
		return Script{Kind: ScriptAsyncRemote, Src: s.Src, CrossOrigin: s.CrossOrigin, NoModule: s.NoModule}
	default:
		return Script{Kind: ScriptRemote, Src: s.Src, CrossOrigin: s.CrossOrigin, NoModule: s.NoModule}
	}
}
