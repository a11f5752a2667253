package jsbridge

import (
	"weak"

	"github.com/dop251/goja"
)

// Weak is a non-owning reference to a shared native object. Marshalling
// a Weak checks liveness once, at conversion time: a live referent
// converts normally, a collected one converts to null. It never keeps
// the referent alive.
type Weak[T any] struct {
	p weak.Pointer[T]
}

// NewWeak makes a weak reference to v.
func NewWeak[T any](v *T) Weak[T] {
	return Weak[T]{p: weak.Make(v)}
}

// Get returns the referent, or nil if it has been collected.
func (w Weak[T]) Get() *T {
	return w.p.Value()
}

// MarshalJS converts the referent if it is still live, else null.
func (w Weak[T]) MarshalJS(ctx *Context) (goja.Value, error) {
	v := w.p.Value()
	if v == nil {
		return goja.Null(), nil
	}
	return ctx.Marshal(v)
}
