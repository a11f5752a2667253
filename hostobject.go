package jsbridge

import (
	"reflect"

	"github.com/dop251/goja"
)

// PropertyProvider is the capability a shared native object implements
// to appear as a property-bearing script object. Property reads
// delegate to GetProperty at access time; nothing is copied eagerly.
type PropertyProvider interface {
	GetProperty(name string) (any, bool)
	PropertyNames() []string
}

// PropertySetter optionally extends PropertyProvider with script-side
// property writes.
type PropertySetter interface {
	SetProperty(name string, value any) bool
}

// hostObject adapts a PropertyProvider to the engine's dynamic object
// protocol.
type hostObject struct {
	ctx      *Context
	provider PropertyProvider
}

var _ goja.DynamicObject = (*hostObject)(nil)

func (h *hostObject) Get(key string) goja.Value {
	v, ok := h.provider.GetProperty(key)
	if !ok {
		return goja.Undefined()
	}
	val, err := h.ctx.Marshal(v)
	if err != nil {
		panic(h.ctx.rt.NewTypeError("property %s: %s", key, err.Error()))
	}
	return val
}

func (h *hostObject) Set(key string, val goja.Value) bool {
	setter, ok := h.provider.(PropertySetter)
	if !ok {
		return false
	}
	v, err := h.ctx.unmarshalInterface(val)
	if err != nil {
		return false
	}
	return setter.SetProperty(key, v)
}

func (h *hostObject) Has(key string) bool {
	_, ok := h.provider.GetProperty(key)
	return ok
}

func (h *hostObject) Delete(key string) bool {
	return false
}

func (h *hostObject) Keys() []string {
	return h.provider.PropertyNames()
}

// wrapHostObject returns the runtime object for a native provider,
// creating and caching it on first sight. Repeated marshals of the same
// provider yield the identical object, which is what makes the
// round trip identity-preserving.
func (ctx *Context) wrapHostObject(p PropertyProvider) *goja.Object {
	if obj, ok := ctx.objectByHost[p]; ok {
		return obj
	}
	obj := ctx.rt.NewDynamicObject(&hostObject{ctx: ctx, provider: p})
	ctx.objectByHost[p] = obj
	ctx.hostByObject[obj] = p
	return obj
}

// unwrapHostObject recovers the original native object from a value
// previously produced by wrapHostObject. Identity, not structure: any
// value this context did not wrap is a type mismatch, as is a wrapped
// object of the wrong native type.
func (ctx *Context) unwrapHostObject(val goja.Value, rv reflect.Value) error {
	obj, ok := val.(*goja.Object)
	if !ok {
		return newTypeMismatch(KindHostObject, ctx.KindOf(val))
	}
	native, ok := ctx.hostByObject[obj]
	if !ok {
		return newTypeMismatch(KindHostObject, ctx.KindOf(val))
	}
	nv := reflect.ValueOf(native)
	if !nv.Type().AssignableTo(rv.Type()) {
		return newTypeMismatch(KindHostObject, ctx.KindOf(val))
	}
	rv.Set(nv)
	return nil
}
