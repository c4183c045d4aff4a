package htmlentry

import "sync"

// Sandbox is the caller-supplied substitute for the global environment.
// Scripts executed through ExecScripts see it as window, self and globalThis;
// the engine only ever reads and writes named properties on it. Property
// trapping, cross-application isolation and teardown are the caller's
// concern: this is scoping convenience, not a security boundary.
type Sandbox interface {
	Get(name string) (any, bool)
	Set(name string, value any)
	Has(name string) bool
	Delete(name string)
	// Keys returns the property names. Implementations should preserve
	// insertion order so export capture can identify the newest property.
	Keys() []string
}

// GlobalSandbox is the default Sandbox: a mutex-guarded map that remembers
// insertion order.
type GlobalSandbox struct {
	mu     sync.RWMutex
	values map[string]any
	order  []string
}

// NewGlobalSandbox creates an empty sandbox.
func NewGlobalSandbox() *GlobalSandbox {
	return &GlobalSandbox{values: make(map[string]any)}
}

// Get returns the named property.
func (g *GlobalSandbox) Get(name string) (any, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.values[name]
	return v, ok
}

// Set writes the named property, recording first-write order.
func (g *GlobalSandbox) Set(name string, value any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.values[name]; !ok {
		g.order = append(g.order, name)
	}
	g.values[name] = value
}

// Has reports whether the named property exists.
func (g *GlobalSandbox) Has(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.values[name]
	return ok
}

// Delete removes the named property.
func (g *GlobalSandbox) Delete(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.values[name]; !ok {
		return
	}
	delete(g.values, name)
	for i, n := range g.order {
		if n == name {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// Keys returns property names in insertion order.
func (g *GlobalSandbox) Keys() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	keys := make([]string, len(g.order))
	copy(keys, g.order)
	return keys
}

// snapshotKeys records the sandbox's property names before the entry script
// runs.
func snapshotKeys(sb Sandbox) map[string]struct{} {
	keys := sb.Keys()
	snap := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		snap[k] = struct{}{}
	}
	return snap
}

// exportProperty identifies the property the entry script added: the last
// key, in Keys order, absent from the snapshot.
func exportProperty(sb Sandbox, before map[string]struct{}) (string, bool) {
	var name string
	var found bool
	for _, k := range sb.Keys() {
		if _, ok := before[k]; !ok {
			name = k
			found = true
		}
	}
	return name, found
}
