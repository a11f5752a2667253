package jsbridge

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/dop251/goja"
)

// Marshaler is the interface implemented by types that can marshal
// themselves into a runtime value.
type Marshaler interface {
	MarshalJS(ctx *Context) (goja.Value, error)
}

// Unmarshaler is the interface implemented by types that can unmarshal a
// runtime value into themselves.
type Unmarshaler interface {
	UnmarshalJS(ctx *Context, val goja.Value) error
}

var (
	gojaValueType     = reflect.TypeOf((*goja.Value)(nil)).Elem()
	gojaObjectType    = reflect.TypeOf((*goja.Object)(nil))
	providerType      = reflect.TypeOf((*PropertyProvider)(nil)).Elem()
	errorType         = reflect.TypeOf((*error)(nil)).Elem()
	syncCallbackType  = reflect.TypeOf((*SyncCallback)(nil))
	asyncCallbackType = reflect.TypeOf((*AsyncCallback)(nil))
)

// Marshal returns the runtime value encoding of v.
// It traverses v recursively and creates corresponding runtime values.
//
// Marshal uses the following type mappings:
//   - bool -> boolean
//   - integer and float types -> number
//   - string -> string
//   - []byte -> ArrayBuffer
//   - slice/array -> Array, elements in order
//   - map -> Object, one property per entry
//   - struct -> Object, fields named by `js`/`json` tags
//   - func -> Function with arity checking (see Context.Function)
//   - nil pointer or nil interface -> null, non-nil pointer -> the
//     pointed-to value
//   - PropertyProvider -> host object with lazy property delegation
//   - goja.Value -> passed through unchanged
//
// Types implementing Marshaler are marshaled with their MarshalJS method;
// that is the extension point for new conversions (Promise, SyncCallback,
// AsyncCallback and Weak all plug in this way).
//
// A nested element failure aborts the whole conversion; no partially
// built container is returned.
func (ctx *Context) Marshal(v any) (goja.Value, error) {
	if v == nil {
		return goja.Null(), nil
	}
	return ctx.marshal(reflect.ValueOf(v))
}

// Unmarshal converts a runtime value into the Go value pointed to by v.
// If v is nil or not a pointer, Unmarshal returns an error.
//
// The conversion is kind-strict: a value whose runtime kind does not
// match the target type fails with *TypeMismatchError. Booleans and
// numbers are never interchangeable; int and float targets accept any
// number value. Null and undefined unmarshal into pointers as nil.
// Function values unmarshal into Go func types, *SyncCallback and
// *AsyncCallback. Host objects unmarshal only into the identical native
// object they were created from.
func (ctx *Context) Unmarshal(val goja.Value, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("unmarshal target must be a non-nil pointer")
	}
	return ctx.unmarshal(val, rv.Elem())
}

// As is the generic front end to Unmarshal.
func As[T any](ctx *Context, val goja.Value) (T, error) {
	var out T
	err := ctx.Unmarshal(val, &out)
	return out, err
}

func (ctx *Context) marshal(rv reflect.Value) (goja.Value, error) {
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return goja.Null(), nil
		}
		rv = rv.Elem()
	}

	if rv.CanInterface() {
		switch v := rv.Interface().(type) {
		case goja.Value:
			return v, nil
		case Marshaler:
			return v.MarshalJS(ctx)
		case PropertyProvider:
			return ctx.wrapHostObject(v), nil
		}
	}

	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return goja.Null(), nil
		}
		return ctx.marshal(rv.Elem())
	}

	switch rv.Kind() {
	case reflect.Bool:
		return ctx.rt.ToValue(rv.Bool()), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ctx.rt.ToValue(rv.Int()), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ctx.rt.ToValue(rv.Uint()), nil

	case reflect.Float32, reflect.Float64:
		return ctx.rt.ToValue(rv.Float()), nil

	case reflect.String:
		return ctx.rt.ToValue(rv.String()), nil

	case reflect.Func:
		return ctx.funcValue(rv)

	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return ctx.rt.ToValue(ctx.rt.NewArrayBuffer(rv.Bytes())), nil
		}
		return ctx.marshalSequence(rv)

	case reflect.Array:
		return ctx.marshalSequence(rv)

	case reflect.Map:
		return ctx.marshalMap(rv)

	case reflect.Struct:
		return ctx.marshalStruct(rv)

	default:
		return nil, fmt.Errorf("unsupported type: %v", rv.Type())
	}
}

// marshalSequence marshals a Go slice or array to an Array, preserving
// element order and count.
func (ctx *Context) marshalSequence(rv reflect.Value) (goja.Value, error) {
	elems := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem, err := ctx.marshal(rv.Index(i))
		if err != nil {
			return nil, fmt.Errorf("array element %d: %w", i, err)
		}
		elems[i] = elem
	}
	return ctx.rt.NewArray(elems...), nil
}

// marshalMap marshals a Go map to an Object with one property per entry.
// Go maps have no iteration order, so property order is unspecified.
func (ctx *Context) marshalMap(rv reflect.Value) (goja.Value, error) {
	obj := ctx.rt.NewObject()
	for _, key := range rv.MapKeys() {
		keyStr := fmt.Sprintf("%v", key.Interface())
		val, err := ctx.marshal(rv.MapIndex(key))
		if err != nil {
			return nil, fmt.Errorf("map value for key %q: %w", keyStr, err)
		}
		if err := obj.Set(keyStr, val); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func (ctx *Context) marshalStruct(rv reflect.Value) (goja.Value, error) {
	rt := rv.Type()
	obj := ctx.rt.NewObject()

	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		name, skip := fieldName(field)
		if skip {
			continue
		}

		val, err := ctx.marshal(rv.Field(i))
		if err != nil {
			return nil, fmt.Errorf("struct field %s: %w", field.Name, err)
		}
		if err := obj.Set(name, val); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// fieldName resolves the script-side property name of a struct field.
// The "js" tag wins over "json"; a "-" tag skips the field.
func fieldName(field reflect.StructField) (name string, skip bool) {
	name = field.Name
	if tag := field.Tag.Get("js"); tag != "" {
		if tag == "-" {
			return "", true
		}
		return tag, false
	}
	if tag := field.Tag.Get("json"); tag != "" {
		if tag == "-" {
			return "", true
		}
		if idx := strings.Index(tag, ","); idx != -1 {
			return tag[:idx], false
		}
		return tag, false
	}
	return name, false
}

func (ctx *Context) unmarshal(val goja.Value, rv reflect.Value) error {
	if rv.CanAddr() {
		if unmarshaler, ok := rv.Addr().Interface().(Unmarshaler); ok {
			return unmarshaler.UnmarshalJS(ctx, val)
		}
	}

	t := rv.Type()
	switch t {
	case gojaValueType:
		rv.Set(reflect.ValueOf(val))
		return nil

	case gojaObjectType:
		obj, ok := val.(*goja.Object)
		if !ok {
			return newTypeMismatch(KindObject, ctx.KindOf(val))
		}
		rv.Set(reflect.ValueOf(obj))
		return nil

	case syncCallbackType:
		cb, err := ctx.SyncCallback(val)
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(cb))
		return nil

	case asyncCallbackType:
		cb, err := ctx.AsyncCallback(val)
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(cb))
		return nil
	}

	// Host objects round-trip by identity: the only acceptable input is
	// an object this context wrapped earlier, and the result is the
	// original native object, not a copy.
	if t.Implements(providerType) {
		return ctx.unwrapHostObject(val, rv)
	}

	if rv.Kind() == reflect.Ptr {
		if goja.IsNull(val) || goja.IsUndefined(val) {
			rv.Set(reflect.Zero(t))
			return nil
		}
		if rv.IsNil() {
			rv.Set(reflect.New(t.Elem()))
		}
		return ctx.unmarshal(val, rv.Elem())
	}

	switch rv.Kind() {
	case reflect.Bool:
		if k := ctx.KindOf(val); k != KindBoolean {
			return newTypeMismatch(KindBoolean, k)
		}
		rv.SetBool(val.ToBoolean())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if k := ctx.KindOf(val); k != KindNumber {
			return newTypeMismatch(KindNumber, k)
		}
		rv.SetInt(val.ToInteger())

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if k := ctx.KindOf(val); k != KindNumber {
			return newTypeMismatch(KindNumber, k)
		}
		n := val.ToInteger()
		if n < 0 {
			return fmt.Errorf("cannot unmarshal negative number into %v", t)
		}
		rv.SetUint(uint64(n))

	case reflect.Float32, reflect.Float64:
		if k := ctx.KindOf(val); k != KindNumber {
			return newTypeMismatch(KindNumber, k)
		}
		rv.SetFloat(val.ToFloat())

	case reflect.String:
		if k := ctx.KindOf(val); k != KindString {
			return newTypeMismatch(KindString, k)
		}
		rv.SetString(val.String())

	case reflect.Func:
		fn, err := ctx.makeGoFunc(val, t)
		if err != nil {
			return err
		}
		rv.Set(fn)

	case reflect.Slice:
		return ctx.unmarshalSlice(val, rv)

	case reflect.Array:
		return ctx.unmarshalArray(val, rv)

	case reflect.Map:
		return ctx.unmarshalMap(val, rv)

	case reflect.Struct:
		return ctx.unmarshalStruct(val, rv)

	case reflect.Interface:
		if t.NumMethod() != 0 {
			return fmt.Errorf("unsupported type: %v", t)
		}
		out, err := ctx.unmarshalInterface(val)
		if err != nil {
			return err
		}
		if out == nil {
			rv.Set(reflect.Zero(t))
		} else {
			rv.Set(reflect.ValueOf(out))
		}

	default:
		return fmt.Errorf("unsupported type: %v", t)
	}

	return nil
}

func (ctx *Context) unmarshalSlice(val goja.Value, rv reflect.Value) error {
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		if ab, ok := val.Export().(goja.ArrayBuffer); ok {
			rv.SetBytes(append([]byte(nil), ab.Bytes()...))
			return nil
		}
	}

	obj, _ := val.(*goja.Object)
	k := ctx.KindOf(val)
	if k != KindArray {
		return newTypeMismatch(KindArray, k)
	}

	length := int(obj.Get("length").ToInteger())
	slice := reflect.MakeSlice(rv.Type(), length, length)

	for i := 0; i < length; i++ {
		elem := obj.Get(strconv.Itoa(i))
		if elem == nil {
			elem = goja.Undefined()
		}
		if err := ctx.unmarshal(elem, slice.Index(i)); err != nil {
			return fmt.Errorf("array element %d: %w", i, err)
		}
	}

	rv.Set(slice)
	return nil
}

func (ctx *Context) unmarshalArray(val goja.Value, rv reflect.Value) error {
	obj, _ := val.(*goja.Object)
	k := ctx.KindOf(val)
	if k != KindArray {
		return newTypeMismatch(KindArray, k)
	}

	length := int(obj.Get("length").ToInteger())
	if rv.Len() < length {
		length = rv.Len()
	}

	for i := 0; i < length; i++ {
		elem := obj.Get(strconv.Itoa(i))
		if elem == nil {
			elem = goja.Undefined()
		}
		if err := ctx.unmarshal(elem, rv.Index(i)); err != nil {
			return fmt.Errorf("array element %d: %w", i, err)
		}
	}
	return nil
}

func (ctx *Context) unmarshalMap(val goja.Value, rv reflect.Value) error {
	obj, _ := val.(*goja.Object)
	k := ctx.KindOf(val)
	if k != KindObject {
		return newTypeMismatch(KindObject, k)
	}

	if rv.IsNil() {
		rv.Set(reflect.MakeMap(rv.Type()))
	}

	keyType := rv.Type().Key()
	valueType := rv.Type().Elem()

	for _, prop := range obj.Keys() {
		keyVal := reflect.New(keyType).Elem()
		switch keyType.Kind() {
		case reflect.String:
			keyVal.SetString(prop)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(prop, 10, 64)
			if err != nil {
				continue // skip non-numeric keys for numeric key types
			}
			keyVal.SetInt(n)
		default:
			return fmt.Errorf("unsupported map key type: %v", keyType)
		}

		elem := obj.Get(prop)
		if elem == nil {
			elem = goja.Undefined()
		}
		valueVal := reflect.New(valueType).Elem()
		if err := ctx.unmarshal(elem, valueVal); err != nil {
			return fmt.Errorf("map value for key %q: %w", prop, err)
		}
		rv.SetMapIndex(keyVal, valueVal)
	}
	return nil
}

func (ctx *Context) unmarshalStruct(val goja.Value, rv reflect.Value) error {
	obj, _ := val.(*goja.Object)
	k := ctx.KindOf(val)
	if k != KindObject {
		return newTypeMismatch(KindObject, k)
	}

	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		name, skip := fieldName(field)
		if skip {
			continue
		}

		prop := obj.Get(name)
		if prop == nil || goja.IsUndefined(prop) {
			continue
		}
		if err := ctx.unmarshal(prop, rv.Field(i)); err != nil {
			return fmt.Errorf("struct field %s: %w", field.Name, err)
		}
	}
	return nil
}

// unmarshalInterface converts a runtime value to a generic Go value:
// nil, bool, int64, float64, string, []byte, []any or map[string]any.
// Host objects come back as the original native object.
func (ctx *Context) unmarshalInterface(val goja.Value) (any, error) {
	switch k := ctx.KindOf(val); k {
	case KindUndefined, KindNull:
		return nil, nil

	case KindBoolean:
		return val.ToBoolean(), nil

	case KindNumber:
		f := val.ToFloat()
		if f == float64(int64(f)) {
			return int64(f), nil
		}
		return f, nil

	case KindString:
		return val.String(), nil

	case KindHostObject:
		return ctx.hostByObject[val.(*goja.Object)], nil

	case KindArray:
		obj := val.(*goja.Object)
		length := int(obj.Get("length").ToInteger())
		out := make([]any, length)
		for i := 0; i < length; i++ {
			elem := obj.Get(strconv.Itoa(i))
			if elem == nil {
				elem = goja.Undefined()
			}
			v, err := ctx.unmarshalInterface(elem)
			if err != nil {
				return nil, fmt.Errorf("array element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil

	case KindObject:
		if ab, ok := val.Export().(goja.ArrayBuffer); ok {
			return append([]byte(nil), ab.Bytes()...), nil
		}
		obj := val.(*goja.Object)
		out := make(map[string]any)
		for _, prop := range obj.Keys() {
			elem := obj.Get(prop)
			if elem == nil {
				elem = goja.Undefined()
			}
			v, err := ctx.unmarshalInterface(elem)
			if err != nil {
				return nil, fmt.Errorf("map value for key %q: %w", prop, err)
			}
			out[prop] = v
		}
		return out, nil

	default:
		return nil, fmt.Errorf("cannot unmarshal %s into interface value", k)
	}
}
