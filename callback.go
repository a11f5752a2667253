package jsbridge

import (
	"fmt"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// SyncCallback wraps a borrowed runtime Function for synchronous native
// invocation. It must only be called from the runtime-owning thread; that
// is a caller-side contract, not enforced here. The wrapped Function
// stays valid and reusable across calls.
type SyncCallback struct {
	ctx  *Context
	fn   goja.Value
	call goja.Callable
}

// SyncCallback wraps a Function value. Any other kind is a type
// mismatch.
func (ctx *Context) SyncCallback(v goja.Value) (*SyncCallback, error) {
	call, ok := goja.AssertFunction(v)
	if !ok {
		return nil, newTypeMismatch(KindFunction, ctx.KindOf(v))
	}
	return &SyncCallback{ctx: ctx, fn: v, call: call}, nil
}

// Value returns the wrapped Function.
func (cb *SyncCallback) Value() goja.Value {
	return cb.fn
}

// MarshalJS round-trips the borrowed Function unchanged.
func (cb *SyncCallback) MarshalJS(ctx *Context) (goja.Value, error) {
	return cb.fn, nil
}

// Call converts args, invokes the Function synchronously and unmarshals
// the script return value into result. Pass a nil result to discard the
// return value. Owning thread only.
func (cb *SyncCallback) Call(result any, args ...any) error {
	jsArgs, err := cb.ctx.marshalArgs(args)
	if err != nil {
		return err
	}
	ret, err := cb.call(goja.Undefined(), jsArgs...)
	if err != nil {
		return asScriptError(err)
	}
	if result == nil {
		return nil
	}
	return cb.ctx.Unmarshal(ret, result)
}

// AsyncCallback wraps a shared runtime Function plus the context's
// Invoker, making it invocable from any goroutine. Invocations are
// delivered to the owning thread in submission order, asynchronously
// relative to the call site.
type AsyncCallback struct {
	ctx  *Context
	fn   goja.Value
	call goja.Callable
}

// AsyncCallback wraps a Function value for cross-thread invocation. Any
// other kind is a type mismatch.
func (ctx *Context) AsyncCallback(v goja.Value) (*AsyncCallback, error) {
	call, ok := goja.AssertFunction(v)
	if !ok {
		return nil, newTypeMismatch(KindFunction, ctx.KindOf(v))
	}
	return &AsyncCallback{ctx: ctx, fn: v, call: call}, nil
}

// Value returns the wrapped Function. Owning thread only.
func (cb *AsyncCallback) Value() goja.Value {
	return cb.fn
}

// MarshalJS round-trips the shared Function unchanged.
func (cb *AsyncCallback) MarshalJS(ctx *Context) (goja.Value, error) {
	return cb.fn, nil
}

// Invoke captures args by value now and schedules the script-side call
// through the Invoker. Safe from any goroutine. The caller never
// observes the script-side effect synchronously; if the context is torn
// down before delivery, the call is dropped silently.
func (cb *AsyncCallback) Invoke(args ...any) {
	captured := make([]any, len(args))
	copy(captured, args)

	cb.ctx.invoker.Schedule(func() {
		if !cb.ctx.alive() {
			Logger().Debug("async callback delivery after teardown, dropping")
			return
		}
		if err := cb.deliver(captured, nil); err != nil {
			Logger().Warn("async callback failed", zap.Error(err))
		}
	})
}

// InvokeWithResult schedules the call like Invoke and returns a Promise
// that settles with the script function's result. Because the Promise's
// runtime-visible object is created up front, InvokeWithResult must be
// called on the owning thread; the returned Promise may then be awaited
// by script while delivery is still pending.
func (cb *AsyncCallback) InvokeWithResult(args ...any) *Promise {
	captured := make([]any, len(args))
	copy(captured, args)

	p := cb.ctx.NewPromise()
	cb.ctx.invoker.Schedule(func() {
		if !cb.ctx.alive() {
			Logger().Debug("async callback delivery after teardown, dropping")
			return
		}
		if err := cb.deliver(captured, p); err != nil {
			p.Reject(err)
		}
	})
	return p
}

// deliver runs on the owning thread: converts the captured args, calls
// the Function, and settles p with the result when one was requested.
func (cb *AsyncCallback) deliver(captured []any, p *Promise) error {
	jsArgs, err := cb.ctx.marshalArgs(captured)
	if err != nil {
		return err
	}
	ret, err := cb.call(goja.Undefined(), jsArgs...)
	if err != nil {
		return asScriptError(err)
	}
	if p != nil {
		p.resolveValue(ret)
	}
	return nil
}

func (ctx *Context) marshalArgs(args []any) ([]goja.Value, error) {
	jsArgs := make([]goja.Value, len(args))
	for i, arg := range args {
		v, err := ctx.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		jsArgs[i] = v
	}
	return jsArgs, nil
}
