package jsbridge

import (
	"sync/atomic"

	"github.com/dop251/goja"
)

// Promise exposes a native asynchronous result as a runtime-visible
// promise. The promise object exists from construction, independent of
// resolution timing, so it can be handed to script before the native
// work completes. Settlement is exactly-once-effective: only the first
// Resolve or Reject has any observable effect, which tolerates racing or
// double-firing native completion sources.
type Promise struct {
	ctx     *Context
	promise *goja.Promise
	resolve func(result any)
	reject  func(reason any)
	settled atomic.Bool
}

// NewPromise creates a pending promise. Owning thread only; Resolve and
// Reject on the result may be called from any goroutine.
func (ctx *Context) NewPromise() *Promise {
	promise, resolve, reject := ctx.rt.NewPromise()
	return &Promise{
		ctx:     ctx,
		promise: promise,
		resolve: func(result any) { resolve(result) },
		reject:  func(reason any) { reject(reason) },
	}
}

// Value returns the runtime-visible promise object. Owning thread only.
func (p *Promise) Value() goja.Value {
	return p.ctx.rt.ToValue(p.promise)
}

// MarshalJS converts the promise to its runtime-visible object, resolved
// or not.
func (p *Promise) MarshalJS(ctx *Context) (goja.Value, error) {
	return p.Value(), nil
}

// Resolve fulfills the promise with v, converted on the owning thread
// and delivered through the Invoker. Calls after the first settlement
// are no-ops. Safe from any goroutine. If conversion of v fails, the
// promise is rejected with the conversion error instead.
func (p *Promise) Resolve(v any) {
	if !p.settled.CompareAndSwap(false, true) {
		return
	}
	p.ctx.invoker.Schedule(func() {
		if !p.ctx.alive() {
			Logger().Debug("promise resolution after teardown, dropping")
			return
		}
		val, err := p.ctx.Marshal(v)
		if err != nil {
			p.reject(p.ctx.rt.NewGoError(err))
			return
		}
		p.resolve(val)
	})
}

// Reject rejects the promise with a runtime-visible Error value built
// from err. Calls after the first settlement are no-ops. Safe from any
// goroutine.
func (p *Promise) Reject(err error) {
	if !p.settled.CompareAndSwap(false, true) {
		return
	}
	p.ctx.invoker.Schedule(func() {
		if !p.ctx.alive() {
			Logger().Debug("promise rejection after teardown, dropping")
			return
		}
		p.reject(p.ctx.rt.NewGoError(err))
	})
}

// resolveValue settles with an already-converted value. Owning thread
// only; used by delivery code that is already inside an Invoker job.
func (p *Promise) resolveValue(val goja.Value) {
	if !p.settled.CompareAndSwap(false, true) {
		return
	}
	p.resolve(val)
}
