package jsbridge

import (
	"reflect"

	"github.com/dop251/goja"
)

// Kind classifies a runtime value at the granularity conversions care
// about. It is deliberately coarser than the engine's own type lattice:
// an Array, a Function and a Promise are all objects to the engine, but
// a converter expecting a plain Object must reject them.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindNumber
	KindString
	KindObject
	KindArray
	KindFunction
	KindPromise
	KindHostObject
)

var kindNames = [...]string{
	KindUndefined:  "undefined",
	KindNull:       "null",
	KindBoolean:    "boolean",
	KindNumber:     "number",
	KindString:     "string",
	KindObject:     "object",
	KindArray:      "array",
	KindFunction:   "function",
	KindPromise:    "promise",
	KindHostObject: "host object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// KindOf returns the Kind of a runtime value. Host objects are only
// recognizable through a Context (the identity cache lives there), so
// KindOf reports them as KindObject; Context.KindOf refines that.
func KindOf(v goja.Value) Kind {
	if v == nil || goja.IsUndefined(v) {
		return KindUndefined
	}
	if goja.IsNull(v) {
		return KindNull
	}
	if obj, ok := v.(*goja.Object); ok {
		if _, isFn := goja.AssertFunction(v); isFn {
			return KindFunction
		}
		switch obj.ClassName() {
		case "Array":
			return KindArray
		case "Promise":
			return KindPromise
		}
		return KindObject
	}
	switch v.ExportType().Kind() {
	case reflect.Bool:
		return KindBoolean
	case reflect.Int64, reflect.Float64:
		return KindNumber
	case reflect.String:
		return KindString
	}
	return KindObject
}

// KindOf reports the Kind of v, distinguishing host objects previously
// produced by this context from plain script objects.
func (ctx *Context) KindOf(v goja.Value) Kind {
	k := KindOf(v)
	if k == KindObject {
		if obj, ok := v.(*goja.Object); ok {
			if _, hosted := ctx.hostByObject[obj]; hosted {
				return KindHostObject
			}
		}
	}
	return k
}
