package jsbridge

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/dop251/goja"
)

// Function bridges a Go func into a runtime Function value. The declared
// parameter count becomes the function's arity; a script call supplying
// fewer arguments, or one whose positional conversion fails, throws
// before the Go func runs, so a failed call has no native side effects.
// Surplus arguments are ignored, matching script convention.
//
// Return values map as follows: none -> undefined, a single value -> its
// marshaled form, multiple values -> an Array. A trailing error return is
// split off; a non-nil error is thrown into the script caller.
func (ctx *Context) Function(fn any) (goja.Value, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, fmt.Errorf("jsbridge: Function requires a Go func, got %T", fn)
	}
	return ctx.funcValue(rv)
}

func (ctx *Context) funcValue(rv reflect.Value) (goja.Value, error) {
	t := rv.Type()
	required := t.NumIn()
	if t.IsVariadic() {
		required--
	}

	wrapper := func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < required {
			aerr := &ArityError{Required: required, Got: len(call.Arguments)}
			panic(ctx.rt.NewTypeError("%s", aerr.Error()))
		}

		args := make([]reflect.Value, 0, t.NumIn())
		for i := 0; i < required; i++ {
			arg := reflect.New(t.In(i))
			if err := ctx.unmarshal(call.Arguments[i], arg.Elem()); err != nil {
				panic(ctx.rt.NewTypeError("argument %d: %s", i, err.Error()))
			}
			args = append(args, arg.Elem())
		}
		if t.IsVariadic() {
			elemType := t.In(t.NumIn() - 1).Elem()
			for i := required; i < len(call.Arguments); i++ {
				arg := reflect.New(elemType)
				if err := ctx.unmarshal(call.Arguments[i], arg.Elem()); err != nil {
					panic(ctx.rt.NewTypeError("argument %d: %s", i, err.Error()))
				}
				args = append(args, arg.Elem())
			}
		}

		return ctx.bridgeResults(rv.Call(args))
	}

	fnVal := ctx.rt.ToValue(wrapper)
	if obj, ok := fnVal.(*goja.Object); ok {
		// The engine reports wrapper arity 0; expose the declared one.
		_ = obj.DefineDataProperty("length", ctx.rt.ToValue(required),
			goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE)
	}
	return fnVal, nil
}

func (ctx *Context) bridgeResults(results []reflect.Value) goja.Value {
	if n := len(results); n > 0 && results[n-1].Type().Implements(errorType) {
		if !results[n-1].IsNil() {
			panic(ctx.rt.NewGoError(results[n-1].Interface().(error)))
		}
		results = results[:n-1]
	}

	switch len(results) {
	case 0:
		return goja.Undefined()
	case 1:
		out, err := ctx.marshal(results[0])
		if err != nil {
			panic(ctx.rt.NewTypeError("return value: %s", err.Error()))
		}
		return out
	default:
		elems := make([]interface{}, len(results))
		for i, res := range results {
			out, err := ctx.marshal(res)
			if err != nil {
				panic(ctx.rt.NewTypeError("return value %d: %s", i, err.Error()))
			}
			elems[i] = out
		}
		return ctx.rt.NewArray(elems...)
	}
}

// makeGoFunc builds a typed Go func that calls a runtime Function
// synchronously. The trampoline carries SyncCallback semantics: it
// borrows the Function value, must run on the runtime-owning thread, and
// leaves the Function callable afterwards. A trailing error return on
// the func type receives conversion and script failures; without one,
// failures panic.
func (ctx *Context) makeGoFunc(fnVal goja.Value, t reflect.Type) (reflect.Value, error) {
	call, ok := goja.AssertFunction(fnVal)
	if !ok {
		return reflect.Value{}, newTypeMismatch(KindFunction, ctx.KindOf(fnVal))
	}

	hasErr := t.NumOut() > 0 && t.Out(t.NumOut()-1) == errorType
	nOuts := t.NumOut()
	if hasErr {
		nOuts--
	}

	impl := func(args []reflect.Value) []reflect.Value {
		out := make([]reflect.Value, t.NumOut())
		for i := range out {
			out[i] = reflect.Zero(t.Out(i))
		}
		fail := func(err error) []reflect.Value {
			if hasErr {
				out[t.NumOut()-1] = reflect.ValueOf(err)
				return out
			}
			panic(err)
		}

		if t.IsVariadic() && len(args) > 0 {
			last := args[len(args)-1]
			args = args[:len(args)-1]
			for i := 0; i < last.Len(); i++ {
				args = append(args, last.Index(i))
			}
		}

		jsArgs := make([]goja.Value, len(args))
		for i, arg := range args {
			v, err := ctx.marshal(arg)
			if err != nil {
				return fail(fmt.Errorf("argument %d: %w", i, err))
			}
			jsArgs[i] = v
		}

		ret, err := call(goja.Undefined(), jsArgs...)
		if err != nil {
			return fail(asScriptError(err))
		}

		switch nOuts {
		case 0:
		case 1:
			res := reflect.New(t.Out(0))
			if err := ctx.unmarshal(ret, res.Elem()); err != nil {
				return fail(fmt.Errorf("return value: %w", err))
			}
			out[0] = res.Elem()
		default:
			// Multiple results come back as an Array, positionally.
			obj, k := ret.(*goja.Object), ctx.KindOf(ret)
			if k != KindArray {
				return fail(newTypeMismatch(KindArray, k))
			}
			for i := 0; i < nOuts; i++ {
				elem := obj.Get(strconv.Itoa(i))
				if elem == nil {
					elem = goja.Undefined()
				}
				res := reflect.New(t.Out(i))
				if err := ctx.unmarshal(elem, res.Elem()); err != nil {
					return fail(fmt.Errorf("return value %d: %w", i, err))
				}
				out[i] = res.Elem()
			}
		}
		return out
	}

	return reflect.MakeFunc(t, impl), nil
}
