package jsbridge

import (
	"sync/atomic"

	"github.com/dop251/goja"
)

// Context owns the bridge's view of a single engine instance. The engine's
// value graph is confined to one owning goroutine: every method on Context
// except the ones that explicitly say otherwise must be called from it.
// Background goroutines reach the engine only through the Invoker.
type Context struct {
	rt      *goja.Runtime
	invoker Invoker
	ownLoop *Loop
	closed  atomic.Bool

	// Host-object identity caches. Owning-thread confined, no locking.
	hostByObject map[*goja.Object]any
	objectByHost map[any]*goja.Object
}

// Option configures a Context.
type Option func(*Context)

// WithInvoker supplies the scheduling mechanism used by async callbacks
// and promises. The host is responsible for draining it on the
// runtime-owning thread. Without this option the Context creates its own
// Loop.
func WithInvoker(inv Invoker) Option {
	return func(ctx *Context) { ctx.invoker = inv }
}

// WithRuntime attaches the Context to an existing engine instance instead
// of creating a fresh one.
func WithRuntime(rt *goja.Runtime) Option {
	return func(ctx *Context) { ctx.rt = rt }
}

// NewContext creates a bridge context with a fresh engine instance unless
// WithRuntime overrides it.
func NewContext(opts ...Option) *Context {
	ctx := &Context{
		hostByObject: make(map[*goja.Object]any),
		objectByHost: make(map[any]*goja.Object),
	}
	for _, opt := range opts {
		opt(ctx)
	}
	if ctx.rt == nil {
		ctx.rt = goja.New()
	}
	if ctx.invoker == nil {
		ctx.ownLoop = NewLoop()
		ctx.invoker = ctx.ownLoop
	}
	return ctx
}

// Runtime returns the underlying engine instance.
func (ctx *Context) Runtime() *goja.Runtime {
	return ctx.rt
}

// Invoker returns the scheduling mechanism for this context.
func (ctx *Context) Invoker() Invoker {
	return ctx.invoker
}

// Loop returns the context-owned Loop, or nil when the host supplied its
// own Invoker.
func (ctx *Context) Loop() *Loop {
	return ctx.ownLoop
}

// Close tears the context down. Async deliveries still in flight are
// dropped silently; the native objects in the identity cache are released
// but their Go lifetime is unaffected.
func (ctx *Context) Close() {
	if !ctx.closed.CompareAndSwap(false, true) {
		return
	}
	if ctx.ownLoop != nil {
		ctx.ownLoop.Stop()
	}
	ctx.hostByObject = make(map[*goja.Object]any)
	ctx.objectByHost = make(map[any]*goja.Object)
}

// alive reports whether the context can still be entered. Safe from any
// goroutine.
func (ctx *Context) alive() bool {
	return !ctx.closed.Load()
}

// Undefined returns an undefined value.
func (ctx *Context) Undefined() goja.Value {
	return goja.Undefined()
}

// Null returns a null value.
func (ctx *Context) Null() goja.Value {
	return goja.Null()
}

// Bool returns a boolean value with given bool.
func (ctx *Context) Bool(b bool) goja.Value {
	return ctx.rt.ToValue(b)
}

// Int64 returns a number value with given int64.
func (ctx *Context) Int64(v int64) goja.Value {
	return ctx.rt.ToValue(v)
}

// Float64 returns a number value with given float64.
func (ctx *Context) Float64(v float64) goja.Value {
	return ctx.rt.ToValue(v)
}

// String returns a string value with given string.
func (ctx *Context) String(v string) goja.Value {
	return ctx.rt.ToValue(v)
}

// NewObject returns a new empty object value.
func (ctx *Context) NewObject() *goja.Object {
	return ctx.rt.NewObject()
}

// NewArray returns a new array value with the given elements in order.
func (ctx *Context) NewArray(items ...goja.Value) *goja.Object {
	elems := make([]interface{}, len(items))
	for i, item := range items {
		elems[i] = item
	}
	return ctx.rt.NewArray(elems...)
}

// Globals returns the global object.
func (ctx *Context) Globals() *goja.Object {
	return ctx.rt.GlobalObject()
}

// Eval runs a script in the global scope and returns its completion
// value. A script throw comes back as *ScriptError.
func (ctx *Context) Eval(code string) (goja.Value, error) {
	v, err := ctx.rt.RunString(code)
	if err != nil {
		return nil, asScriptError(err)
	}
	return v, nil
}
