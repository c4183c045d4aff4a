package htmlentry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/entrykit/htmlentry/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadHTMLEndToEnd(t *testing.T) {
	var pageHits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/index.html", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&pageHits, 1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head>
			<link rel="stylesheet" href="app.css">
			<style>.inline { color: red; }</style>
		</head><body>
			<div id="root"></div>
			<script>window.booted = true;</script>
			<script src="main.js"></script>
		</body></html>`)
	})
	mux.HandleFunc("/app.css", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		fmt.Fprint(w, `body { margin: 0; }`)
	})
	mux.HandleFunc("/main.js", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `window.widget = { mount: function(){} };`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l, err := New(WithStores(NewStores()))
	require.NoError(t, err)

	h, err := l.LoadHTML(context.Background(), srv.URL+"/index.html")
	require.NoError(t, err)

	assert.Contains(t, h.Template, "<style>body { margin: 0; }</style>")
	assert.Contains(t, h.Template, ".inline { color: red; }")
	assert.Contains(t, h.Template, "<!-- inline scripts replaced by htmlentry -->")
	assert.Contains(t, h.Template, "<!-- script "+srv.URL+"/main.js replaced by htmlentry -->")
	assert.NotContains(t, h.Template, "<script")

	assert.Equal(t, srv.URL+"/main.js", h.Entry)
	assert.Equal(t, srv.URL+"/", h.AssetPublicPath)

	scripts := h.Scripts()
	require.Len(t, scripts, 2)
	assert.Equal(t, ScriptInline, scripts[0].Kind)
	assert.Equal(t, ScriptRemote, scripts[1].Kind)

	texts, err := h.ExternalScripts(context.Background())
	require.NoError(t, err)
	require.Len(t, texts, 2)
	assert.Equal(t, "window.booted = true;", texts[0])
	assert.Contains(t, texts[1], "window.widget")

	sheets, err := h.ExternalStyleSheets(context.Background())
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, "body { margin: 0; }", sheets[0])

	export, err := h.ExecScripts(context.Background(), NewGlobalSandbox(), nil)
	require.NoError(t, err)
	m, ok := export.(map[string]any)
	require.True(t, ok, "export type %T", export)
	assert.Contains(t, m, "mount")
}

func TestLoadHTMLMemoizesDocument(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, `<html><body></body></html>`)
	}))
	defer srv.Close()

	l, err := New(WithStores(NewStores()))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := l.LoadHTML(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestLoadHTMLMemoizesFailure(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	l, err := New(WithStores(NewStores()))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := l.LoadHTML(context.Background(), srv.URL)
		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, http.StatusNotFound, fe.Status)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "failed fetch must not be retried")
}

func TestLoadEntryRequiresScriptsOrStyles(t *testing.T) {
	l, err := New(WithStores(NewStores()))
	require.NoError(t, err)

	_, err = l.LoadEntry(context.Background(), Config{HTML: "<div></div>"})
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
}

func TestLoadEntryImplicitEntryIsLastRemote(t *testing.T) {
	l, err := New(WithStores(NewStores()))
	require.NoError(t, err)

	h, err := l.LoadEntry(context.Background(), Config{
		Scripts: []string{
			"http://x/a.js",
			"<script>init()</script>",
			"http://x/b.js",
		},
		HTML: "<div id=app></div>",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://x/b.js", h.Entry)
	assert.Equal(t, "/", h.AssetPublicPath)

	scripts := h.Scripts()
	require.Len(t, scripts, 3)
	assert.Equal(t, ScriptRemote, scripts[0].Kind)
	assert.Equal(t, ScriptInline, scripts[1].Kind)
	assert.Equal(t, "init()", scripts[1].Code)
	assert.Equal(t, ScriptRemote, scripts[2].Kind)

	assert.Contains(t, h.Template, "<div id=app></div>")
	assert.Contains(t, h.Template, "<!-- script http://x/a.js replaced by htmlentry -->")
}

func TestNewRejectsExplicitNilFetcher(t *testing.T) {
	_, err := New(WithFetcher(nil))
	assert.True(t, errors.Is(err, ErrNoFetcher))
}

func TestConvertScript(t *testing.T) {
	inline := convertScript(template.Script{Code: "init()"})
	assert.Equal(t, ScriptInline, inline.Kind)
	assert.Equal(t, "init()", inline.Code)

	remote := convertScript(template.Script{Src: "http://x/a.js", CrossOrigin: "anonymous"})
	assert.Equal(t, ScriptRemote, remote.Kind)
	assert.Equal(t, "anonymous", remote.CrossOrigin)

	async := convertScript(template.Script{Src: "http://x/a.js", Async: true})
	assert.Equal(t, ScriptAsyncRemote, async.Kind)
}

func TestHandleAccessorsCopy(t *testing.T) {
	h := &Handle{
		scripts: []Script{{Kind: ScriptRemote, Src: "http://x/a.js"}},
		styles:  []string{"http://x/a.css"},
	}
	h.Scripts()[0].Src = "mutated"
	h.Styles()[0] = "mutated"

	assert.Equal(t, "http://x/a.js", h.scripts[0].Src)
	assert.Equal(t, "http://x/a.css", h.styles[0])
}

func TestLoadHTMLDecodesLegacyCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<html><body><p>caf\xe9</p></body></html>"))
	}))
	defer srv.Close()

	l, err := New(WithStores(NewStores()), WithAutoDecode(true))
	require.NoError(t, err)

	h, err := l.LoadHTML(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, h.Template, "café")
}

func TestDefaultLoaderShared(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)
	assert.Same(t, a, b)
}
