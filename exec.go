package htmlentry

import (
	"context"
	"errors"

	"github.com/entrykit/htmlentry/internal/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ExecOptions tunes one ExecScripts invocation. All fields are optional.
type ExecOptions struct {
	// Fetch overrides the loader's fetch capability for script resolution.
	Fetch Fetcher
	// StrictGlobal routes every free-variable lookup through the sandbox,
	// not just the window/self/globalThis aliases.
	StrictGlobal bool
	// ScopedGlobalVariables extends the names pre-declared as locals in
	// strict-global mode.
	ScopedGlobalVariables []string
	// Success is invoked with the entry export when execution resolves.
	Success func(export any)
	// Error is invoked once per failure: per failing script fetch, and for
	// the fatal entry execution error.
	Error func(err error)
	// BeforeExec may transform a script's code just before execution.
	BeforeExec func(code, src string) string
	// AfterExec is notified after a script body ran.
	AfterExec func(code, src string)
	// OnScriptError receives isolated non-entry script failures. Absent a
	// hook they are only logged.
	OnScriptError func(src string, err error)
}

// resolvedScript pairs a descriptor with its text, or with the handle of a
// still-pending async fetch.
type resolvedScript struct {
	Script
	text  string
	async *asyncHandle
}

// asyncHandle is the eager-fetch handle for an AsyncRemote script: returned
// immediately so scheduling can continue, filled in when the idle-time fetch
// completes.
type asyncHandle struct {
	text string
	err  error
	done chan struct{}
}

// ExecScripts resolves the handle's scripts and executes them in document
// order against the supplied sandbox, returning the entry script's export.
//
// Non-async scripts run synchronously in lockstep with issuance; async
// scripts are fetched eagerly and run whenever their text arrives, without
// blocking later scripts, possibly after ExecScripts has returned. The entry
// script always runs at its own index, even when marked async; its failure
// is fatal and halts issuance of subsequent scripts. Any other script
// failure is isolated, reported through OnScriptError and the log, and
// leaves siblings running.
func (h *Handle) ExecScripts(ctx context.Context, sb Sandbox, opts *ExecOptions) (any, error) {
	var o ExecOptions
	if opts != nil {
		o = *opts
	}

	export, err := h.execScripts(ctx, sb, o)
	if err != nil {
		// Fetch failures already went to the hook at fetch time.
		var fe *FetchError
		if o.Error != nil && !errors.As(err, &fe) {
			o.Error(err)
		}
		return nil, err
	}
	if o.Success != nil {
		o.Success(export)
	}
	return export, nil
}

func (h *Handle) execScripts(ctx context.Context, sb Sandbox, o ExecOptions) (any, error) {
	if len(h.scripts) == 0 {
		return nil, nil
	}

	l := h.loader
	log := &logging.Logger{Logger: l.log.With(zap.String("execution", uuid.NewString()))}

	resolved, err := h.resolveScripts(ctx, o)
	if err != nil {
		return nil, err
	}

	vm := newVM(sb, log)
	stop := vm.watch(ctx)
	defer stop()

	e := &execution{loader: l, opts: o, vm: vm, sb: sb, log: log}

	var export any
	for _, s := range resolved {
		if s.NoModule {
			continue
		}

		if s.IsEntry(h.Entry) {
			// An async entry keeps its eager fetch but is awaited here:
			// entry semantics outrank the non-blocking policy.
			if s.async != nil {
				<-s.async.done
				if s.async.err != nil {
					return nil, s.async.err
				}
				s.text = s.async.text
			}
			value, err := e.runEntry(s)
			if err != nil {
				return nil, err
			}
			export = value
			continue
		}

		if s.async != nil {
			go e.runWhenReady(s)
			continue
		}

		e.runIsolated(s.Src, s.text, "script")
	}

	return export, nil
}

// resolveScripts fans out text resolution for the whole batch: inline texts
// are zero-cost hits, remote texts go through the script cache, and async
// descriptors get a handle whose fetch is scheduled for idle time. One
// failure among the non-async resolutions fails the batch.
func (h *Handle) resolveScripts(ctx context.Context, o ExecOptions) ([]resolvedScript, error) {
	l := h.loader
	fetcher := l.fetcher
	if o.Fetch != nil {
		fetcher = o.Fetch
	}

	resolved := make([]resolvedScript, len(h.scripts))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range h.scripts {
		resolved[i].Script = s

		switch s.Kind {
		case ScriptInline:
			resolved[i].text = s.Code

		case ScriptAsyncRemote:
			handle := &asyncHandle{done: make(chan struct{})}
			resolved[i].async = handle
			l.idle.Run(func() {
				handle.text, handle.err = l.resolveScriptText(ctx, fetcher, s.Src, o.Error)
				close(handle.done)
			})

		default:
			g.Go(func() error {
				text, err := l.resolveScriptText(gctx, fetcher, s.Src, o.Error)
				if err != nil {
					return err
				}
				resolved[i].text = text
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resolved, nil
}

// resolveScriptText memoizes one remote script's text. The error hook fires
// only on the resolving flight, so a failing location is reported once even
// though its cached failure is returned forever after.
func (l *Loader) resolveScriptText(ctx context.Context, fetcher Fetcher, src string, errHook func(error)) (string, error) {
	return l.stores.Scripts.Resolve(src, func() (string, error) {
		text, err := l.fetchTextWith(ctx, fetcher, "script", src)
		if err != nil && errHook != nil {
			errHook(err)
		}
		return text, err
	})
}

// execution carries the per-invocation state shared between the synchronous
// walk and out-of-line async completions.
type execution struct {
	loader *Loader
	opts   ExecOptions
	vm     *vmRuntime
	sb     Sandbox
	log    *logging.Logger
}

// runEntry executes the entry script and captures its export from the
// sandbox property diff. Failure here is fatal for the whole execution.
func (e *execution) runEntry(s resolvedScript) (any, error) {
	code := e.transform(s.text, s.Src)
	wrapped := wrapCode(s.Src, code, e.opts.StrictGlobal, e.opts.ScopedGlobalVariables)

	before := snapshotKeys(e.sb)
	err := e.vm.run(s.Src, wrapped)
	e.loader.metrics.RecordScript("entry", err)
	if err != nil {
		return nil, &ExecError{Src: s.Src, Entry: true, Err: err}
	}

	export := any(map[string]any{})
	if name, ok := exportProperty(e.sb, before); ok {
		if v, ok := e.sb.Get(name); ok {
			if unwrapped := exportValue(v); unwrapped != nil {
				export = unwrapped
			}
		}
	}

	e.notifyAfter(code, s.Src)
	return export, nil
}

// runIsolated executes a non-entry script under the non-fatal error policy.
func (e *execution) runIsolated(src, text, role string) {
	code := e.transform(text, src)
	wrapped := wrapCode(src, code, e.opts.StrictGlobal, e.opts.ScopedGlobalVariables)

	err := e.vm.run(src, wrapped)
	e.loader.metrics.RecordScript(role, err)
	if err != nil {
		e.reportScriptError(src, &ExecError{Src: src, Err: err})
	}
	e.notifyAfter(code, src)
}

// runWhenReady waits for an async script's text and runs it out of line.
// Completion order relative to later scripts is deliberately unordered.
func (e *execution) runWhenReady(s resolvedScript) {
	<-s.async.done
	if s.async.err != nil {
		e.reportScriptError(s.Src, s.async.err)
		return
	}
	e.runIsolated(s.Src, s.async.text, "async")
}

// reportScriptError surfaces an isolated failure without rejecting the
// execution: deferred off the current call stack to the log and hook.
func (e *execution) reportScriptError(src string, err error) {
	e.loader.idle.Run(func() {
		e.log.Error("script failed",
			zap.String("src", src),
			zap.Error(err),
		)
		if e.opts.OnScriptError != nil {
			e.opts.OnScriptError(src, err)
		}
	})
}

func (e *execution) transform(code, src string) string {
	if e.opts.BeforeExec != nil {
		return e.opts.BeforeExec(code, src)
	}
	return code
}

func (e *execution) notifyAfter(code, src string) {
	if e.opts.AfterExec != nil {
		e.opts.AfterExec(code, src)
	}
}
