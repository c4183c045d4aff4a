package htmlentry

import (
	"context"
	"fmt"
	"sync"

	"github.com/dop251/goja"
	"github.com/entrykit/htmlentry/internal/logging"
	"go.uber.org/zap"
)

// sandboxRef is the VM global holding the projected sandbox object. The
// generated wrapper binds window/self/globalThis to it.
const sandboxRef = "__HTMLENTRY_SANDBOX__"

// vmRuntime wraps a goja VM prepared for sandboxed script execution. One VM
// serves a whole ExecScripts invocation; async completions are serialized
// onto it through mu, so script bodies never run concurrently.
type vmRuntime struct {
	vm  *goja.Runtime
	log *logging.Logger
	mu  sync.Mutex
}

// newVM creates a VM with the sandbox projected as a dynamic object and the
// usual hostile globals neutered.
func newVM(sb Sandbox, log *logging.Logger) *vmRuntime {
	vm := goja.New()
	vm.SetMaxCallStackSize(1024)

	r := &vmRuntime{vm: vm, log: log}

	vm.Set(sandboxRef, vm.NewDynamicObject(&sandboxObject{rt: vm, sb: sb}))

	// No module system and no process inside the sandbox.
	vm.Set("require", goja.Undefined())
	vm.Set("process", goja.Undefined())
	vm.Set("module", goja.Undefined())
	vm.Set("exports", goja.Undefined())

	console := vm.NewObject()
	console.Set("log", r.makeConsoleFunc("log"))
	console.Set("info", r.makeConsoleFunc("info"))
	console.Set("warn", r.makeConsoleFunc("warn"))
	console.Set("error", r.makeConsoleFunc("error"))
	vm.Set("console", console)

	return r
}

// run executes wrapped code, recovering goja panics into errors. name feeds
// stack traces for remote scripts.
func (r *vmRuntime) run(name, code string) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("script panic: %v", rec)
		}
	}()

	if name == "" {
		name = "<inline script>"
	}
	_, err = r.vm.RunScript(name, code)
	return err
}

// watch interrupts the VM when ctx is cancelled. The returned stop func must
// be called before the execution returns.
func (r *vmRuntime) watch(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	return func() { close(done) }
}

// makeConsoleFunc routes console output from scripts to the logger.
func (r *vmRuntime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var b []byte
		for i, arg := range call.Arguments {
			if i > 0 {
				b = append(b, ' ')
			}
			b = append(b, arg.String()...)
		}
		msg := string(b)
		switch level {
		case "warn":
			r.log.Warn("console", zap.String("message", msg))
		case "error":
			r.log.Error("console", zap.String("message", msg))
		default:
			r.log.Info("console", zap.String("message", msg))
		}
		return goja.Undefined()
	}
}

// sandboxObject projects a Sandbox into the VM as a dynamic object. Values
// written from scripts are kept as goja values so functions and objects
// survive the round trip; values supplied from Go are converted on read.
type sandboxObject struct {
	rt *goja.Runtime
	sb Sandbox
}

func (o *sandboxObject) Get(key string) goja.Value {
	v, ok := o.sb.Get(key)
	if !ok {
		return goja.Undefined()
	}
	if gv, ok := v.(goja.Value); ok {
		return gv
	}
	return o.rt.ToValue(v)
}

func (o *sandboxObject) Set(key string, val goja.Value) bool {
	o.sb.Set(key, val)
	return true
}

func (o *sandboxObject) Has(key string) bool {
	return o.sb.Has(key)
}

func (o *sandboxObject) Delete(key string) bool {
	o.sb.Delete(key)
	return true
}

func (o *sandboxObject) Keys() []string {
	return o.sb.Keys()
}

// exportValue unwraps a sandbox property into a plain Go value.
func exportValue(v any) any {
	if gv, ok := v.(goja.Value); ok {
		if goja.IsUndefined(gv) || goja.IsNull(gv) {
			return nil
		}
		return gv.Export()
	}
	return v
}
