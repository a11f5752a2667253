package jsbridge_test

import (
	"errors"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/require"

	"github.com/hostfn/jsbridge"
)

// version marshals itself as a tagged string.
type version struct {
	Major, Minor int
}

func (v version) MarshalJS(ctx *jsbridge.Context) (goja.Value, error) {
	return ctx.String("v" + itoa(v.Major) + "." + itoa(v.Minor)), nil
}

func (v *version) UnmarshalJS(ctx *jsbridge.Context, val goja.Value) error {
	var s string
	if err := ctx.Unmarshal(val, &s); err != nil {
		return err
	}
	if len(s) < 4 || s[0] != 'v' {
		return errors.New("malformed version string")
	}
	v.Major = int(s[1] - '0')
	v.Minor = int(s[3] - '0')
	return nil
}

func itoa(n int) string {
	return string(rune('0' + n))
}

type config struct {
	Name    string            `js:"name"`
	Port    int               `json:"port"`
	Debug   bool              `js:"debug"`
	Ignored string            `js:"-"`
	Labels  map[string]string `js:"labels"`
	hidden  string
}

func TestMarshalPrimitiveRoundTrip(t *testing.T) {
	ctx := jsbridge.NewContext()
	defer ctx.Close()

	t.Run("Bool", func(t *testing.T) {
		val, err := ctx.Marshal(true)
		require.NoError(t, err)
		got, err := jsbridge.As[bool](ctx, val)
		require.NoError(t, err)
		require.True(t, got)
	})

	t.Run("Int", func(t *testing.T) {
		val, err := ctx.Marshal(int64(-42))
		require.NoError(t, err)
		got, err := jsbridge.As[int64](ctx, val)
		require.NoError(t, err)
		require.Equal(t, int64(-42), got)
	})

	t.Run("Float", func(t *testing.T) {
		val, err := ctx.Marshal(3.25)
		require.NoError(t, err)
		got, err := jsbridge.As[float64](ctx, val)
		require.NoError(t, err)
		require.Equal(t, 3.25, got)
	})

	t.Run("String", func(t *testing.T) {
		val, err := ctx.Marshal("héllo ☃")
		require.NoError(t, err)
		got, err := jsbridge.As[string](ctx, val)
		require.NoError(t, err)
		require.Equal(t, "héllo ☃", got)
	})

	t.Run("IntFromDouble", func(t *testing.T) {
		val, err := ctx.Eval(`41.9`)
		require.NoError(t, err)
		got, err := jsbridge.As[int](ctx, val)
		require.NoError(t, err)
		require.Equal(t, 41, got)
	})
}

func TestUnmarshalKindStrictness(t *testing.T) {
	ctx := jsbridge.NewContext()
	defer ctx.Close()

	eval := func(code string) goja.Value {
		v, err := ctx.Eval(code)
		require.NoError(t, err)
		return v
	}

	requireMismatch := func(t *testing.T, err error, expected, actual jsbridge.Kind) {
		var tm *jsbridge.TypeMismatchError
		require.ErrorAs(t, err, &tm)
		require.Equal(t, expected, tm.Expected)
		require.Equal(t, actual, tm.Actual)
	}

	t.Run("BoolAsNumber", func(t *testing.T) {
		_, err := jsbridge.As[int](ctx, eval(`true`))
		requireMismatch(t, err, jsbridge.KindNumber, jsbridge.KindBoolean)
	})

	t.Run("NumberAsBool", func(t *testing.T) {
		_, err := jsbridge.As[bool](ctx, eval(`1`))
		requireMismatch(t, err, jsbridge.KindBoolean, jsbridge.KindNumber)
	})

	t.Run("ArrayAsObject", func(t *testing.T) {
		_, err := jsbridge.As[map[string]int](ctx, eval(`[1, 2]`))
		requireMismatch(t, err, jsbridge.KindObject, jsbridge.KindArray)
	})

	t.Run("StringAsArray", func(t *testing.T) {
		_, err := jsbridge.As[[]string](ctx, eval(`"nope"`))
		requireMismatch(t, err, jsbridge.KindArray, jsbridge.KindString)
	})

	t.Run("FunctionAsArray", func(t *testing.T) {
		_, err := jsbridge.As[[]string](ctx, eval(`() => []`))
		requireMismatch(t, err, jsbridge.KindArray, jsbridge.KindFunction)
	})

	t.Run("ObjectAsString", func(t *testing.T) {
		_, err := jsbridge.As[string](ctx, eval(`({})`))
		requireMismatch(t, err, jsbridge.KindString, jsbridge.KindObject)
	})
}

func TestMarshalSequences(t *testing.T) {
	ctx := jsbridge.NewContext()
	defer ctx.Close()

	t.Run("OrderAndCount", func(t *testing.T) {
		val, err := ctx.Marshal([]string{"a", "b", "c"})
		require.NoError(t, err)

		require.NoError(t, ctx.Globals().Set("seq", val))
		joined, err := ctx.Eval(`seq.join("")`)
		require.NoError(t, err)
		require.Equal(t, "abc", joined.String())

		back, err := jsbridge.As[[]string](ctx, val)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b", "c"}, back)
	})

	t.Run("Empty", func(t *testing.T) {
		val, err := ctx.Marshal([]int{})
		require.NoError(t, err)
		back, err := jsbridge.As[[]int](ctx, val)
		require.NoError(t, err)
		require.Len(t, back, 0)
	})

	t.Run("NestedFailureAborts", func(t *testing.T) {
		val, err := ctx.Eval(`[1, "two", 3]`)
		require.NoError(t, err)
		_, err = jsbridge.As[[]int](ctx, val)
		require.Error(t, err)
		require.Contains(t, err.Error(), "array element 1")
		var tm *jsbridge.TypeMismatchError
		require.ErrorAs(t, err, &tm)
	})

	t.Run("Bytes", func(t *testing.T) {
		val, err := ctx.Marshal([]byte("abc"))
		require.NoError(t, err)
		back, err := jsbridge.As[[]byte](ctx, val)
		require.NoError(t, err)
		require.Equal(t, []byte("abc"), back)
	})
}

func TestMarshalMappings(t *testing.T) {
	ctx := jsbridge.NewContext()
	defer ctx.Close()

	t.Run("SingleEntryRoundTrip", func(t *testing.T) {
		val, err := ctx.Marshal(map[string]string{"foo": "bar"})
		require.NoError(t, err)

		obj := val.(*goja.Object)
		require.Equal(t, []string{"foo"}, obj.Keys())
		require.Equal(t, "bar", obj.Get("foo").String())

		back, err := jsbridge.As[map[string]string](ctx, val)
		require.NoError(t, err)
		require.Equal(t, map[string]string{"foo": "bar"}, back)
	})

	t.Run("ValueFailureAborts", func(t *testing.T) {
		val, err := ctx.Eval(`({ok: 1, bad: "x"})`)
		require.NoError(t, err)
		_, err = jsbridge.As[map[string]int](ctx, val)
		require.Error(t, err)
		require.Contains(t, err.Error(), `map value for key "bad"`)
	})
}

func TestMarshalOptionals(t *testing.T) {
	ctx := jsbridge.NewContext()
	defer ctx.Close()

	t.Run("NilToNull", func(t *testing.T) {
		val, err := ctx.Marshal((*string)(nil))
		require.NoError(t, err)
		require.True(t, goja.IsNull(val))
	})

	t.Run("NullToNil", func(t *testing.T) {
		val, err := ctx.Eval(`null`)
		require.NoError(t, err)
		got, err := jsbridge.As[*string](ctx, val)
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("UndefinedToNil", func(t *testing.T) {
		val, err := ctx.Eval(`undefined`)
		require.NoError(t, err)
		got, err := jsbridge.As[*int](ctx, val)
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("Present", func(t *testing.T) {
		s := "here"
		val, err := ctx.Marshal(&s)
		require.NoError(t, err)
		got, err := jsbridge.As[*string](ctx, val)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, "here", *got)
	})

	t.Run("WrongKindStillFails", func(t *testing.T) {
		val, err := ctx.Eval(`true`)
		require.NoError(t, err)
		_, err = jsbridge.As[*int](ctx, val)
		var tm *jsbridge.TypeMismatchError
		require.ErrorAs(t, err, &tm)
	})

	t.Run("NilElementInSlice", func(t *testing.T) {
		val, err := ctx.Marshal([]any{nil, int64(1)})
		require.NoError(t, err)

		require.NoError(t, ctx.Globals().Set("sparse", val))
		got, err := ctx.Eval(`sparse[0] === null && sparse[1] === 1`)
		require.NoError(t, err)
		require.True(t, got.ToBoolean())
	})

	t.Run("NilValueInMap", func(t *testing.T) {
		val, err := ctx.Marshal(map[string]any{"k": nil})
		require.NoError(t, err)

		obj := val.(*goja.Object)
		require.True(t, goja.IsNull(obj.Get("k")))
	})
}

func TestMarshalStructs(t *testing.T) {
	ctx := jsbridge.NewContext()
	defer ctx.Close()

	in := config{
		Name:    "svc",
		Port:    8080,
		Debug:   true,
		Ignored: "secret",
		Labels:  map[string]string{"env": "dev"},
		hidden:  "x",
	}
	val, err := ctx.Marshal(in)
	require.NoError(t, err)

	obj := val.(*goja.Object)
	require.Equal(t, "svc", obj.Get("name").String())
	require.Equal(t, int64(8080), obj.Get("port").ToInteger())
	require.Nil(t, obj.Get("Ignored"))
	require.Nil(t, obj.Get("hidden"))

	var out config
	require.NoError(t, ctx.Unmarshal(val, &out))
	require.Equal(t, "svc", out.Name)
	require.Equal(t, 8080, out.Port)
	require.True(t, out.Debug)
	require.Empty(t, out.Ignored)
	require.Equal(t, map[string]string{"env": "dev"}, out.Labels)
}

func TestMarshalerInterfaces(t *testing.T) {
	ctx := jsbridge.NewContext()
	defer ctx.Close()

	val, err := ctx.Marshal(version{Major: 2, Minor: 7})
	require.NoError(t, err)
	require.Equal(t, "v2.7", val.String())

	var out version
	require.NoError(t, ctx.Unmarshal(val, &out))
	require.Equal(t, version{Major: 2, Minor: 7}, out)
}

func TestUnmarshalInterface(t *testing.T) {
	ctx := jsbridge.NewContext()
	defer ctx.Close()

	val, err := ctx.Eval(`({n: 2, f: 1.5, list: [true, "s"], nested: {k: null}})`)
	require.NoError(t, err)

	got, err := jsbridge.As[any](ctx, val)
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"n":      int64(2),
		"f":      1.5,
		"list":   []any{true, "s"},
		"nested": map[string]any{"k": nil},
	}, got)

	// The generic form round-trips, null entries included.
	val, err = ctx.Marshal(got)
	require.NoError(t, err)
	back, err := jsbridge.As[any](ctx, val)
	require.NoError(t, err)
	require.Equal(t, got, back)
}

func TestUnmarshalTargetValidation(t *testing.T) {
	ctx := jsbridge.NewContext()
	defer ctx.Close()

	require.Error(t, ctx.Unmarshal(ctx.Null(), nil))
	var s string
	require.Error(t, ctx.Unmarshal(ctx.Null(), s))
}
