package state

import (
	"sync"
)

// Registry owns the per-symbol contexts. Contexts are created on first
// use and destroyed only by an explicit operator reset. The registry
// guards its own map; callers serialize work per symbol.
type Registry struct {
	mu       sync.RWMutex
	contexts map[string]*Context
}

// NewRegistry creates an empty context registry
func NewRegistry() *Registry {
	return &Registry{contexts: make(map[string]*Context)}
}

// Get returns the context for a symbol, creating it on first use
func (r *Registry) Get(symbol string) *Context {
	r.mu.RLock()
	ctx, ok := r.contexts[symbol]
	r.mu.RUnlock()
	if ok {
		return ctx
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx, ok = r.contexts[symbol]; ok {
		return ctx
	}
	ctx = NewContext(symbol)
	r.contexts[symbol] = ctx
	return ctx
}

// Peek returns the context for a symbol without creating one
func (r *Registry) Peek(symbol string) (*Context, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctx, ok := r.contexts[symbol]
	return ctx, ok
}

// Reset drops a symbol's context entirely. The next Get starts fresh.
func (r *Registry) Reset(symbol string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contexts[symbol]; !ok {
		return false
	}
	delete(r.contexts, symbol)
	return true
}

// Symbols lists the symbols with live contexts
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.contexts))
	for s := range r.contexts {
		out = append(out, s)
	}
	return out
}

// Restore installs a previously snapshotted context, replacing any
// existing one for the symbol
func (r *Registry) Restore(ctx *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contexts[ctx.Symbol] = ctx
}
