package jsbridge_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostfn/jsbridge"
)

// counter is a shared native object exposed to script as a host object.
type counter struct {
	name  string
	count int
	reads int
}

func (c *counter) GetProperty(name string) (any, bool) {
	c.reads++
	switch name {
	case "name":
		return c.name, true
	case "count":
		return c.count, true
	}
	return nil, false
}

func (c *counter) PropertyNames() []string {
	return []string{"name", "count"}
}

func (c *counter) SetProperty(name string, value any) bool {
	if name != "count" {
		return false
	}
	n, ok := value.(int64)
	if !ok {
		return false
	}
	c.count = int(n)
	return true
}

func TestHostObjectPropertyDelegation(t *testing.T) {
	ctx := jsbridge.NewContext()
	defer ctx.Close()

	c := &counter{name: "requests", count: 7}
	val, err := ctx.Marshal(c)
	require.NoError(t, err)
	require.NoError(t, ctx.Globals().Set("ctr", val))

	// Wrapping copies nothing; reads hit the provider lazily.
	require.Zero(t, c.reads)

	got, err := ctx.Eval(`ctr.name + ":" + ctr.count`)
	require.NoError(t, err)
	require.Equal(t, "requests:7", got.String())
	require.NotZero(t, c.reads)

	got, err = ctx.Eval(`ctr.missing === undefined`)
	require.NoError(t, err)
	require.True(t, got.ToBoolean())

	got, err = ctx.Eval(`Object.keys(ctr).join(",")`)
	require.NoError(t, err)
	require.Equal(t, "name,count", got.String())
}

func TestHostObjectWrites(t *testing.T) {
	ctx := jsbridge.NewContext()
	defer ctx.Close()

	c := &counter{name: "requests"}
	val, err := ctx.Marshal(c)
	require.NoError(t, err)
	require.NoError(t, ctx.Globals().Set("ctr", val))

	_, err = ctx.Eval(`ctr.count = 12`)
	require.NoError(t, err)
	require.Equal(t, 12, c.count)
}

func TestHostObjectIdentity(t *testing.T) {
	ctx := jsbridge.NewContext()
	defer ctx.Close()

	c := &counter{name: "requests"}

	t.Run("SameObjectOnRepeatedMarshal", func(t *testing.T) {
		v1, err := ctx.Marshal(c)
		require.NoError(t, err)
		v2, err := ctx.Marshal(c)
		require.NoError(t, err)
		require.True(t, v1.SameAs(v2))
	})

	t.Run("RoundTripRecoversOriginal", func(t *testing.T) {
		val, err := ctx.Marshal(c)
		require.NoError(t, err)

		var back *counter
		require.NoError(t, ctx.Unmarshal(val, &back))
		require.Same(t, c, back)
	})

	t.Run("UnrelatedObjectMismatch", func(t *testing.T) {
		val, err := ctx.Eval(`({name: "requests", count: 0})`)
		require.NoError(t, err)

		var back *counter
		err = ctx.Unmarshal(val, &back)
		var tm *jsbridge.TypeMismatchError
		require.ErrorAs(t, err, &tm)
		require.Equal(t, jsbridge.KindHostObject, tm.Expected)
		require.Equal(t, jsbridge.KindObject, tm.Actual)
	})

	t.Run("WrongNativeTypeMismatch", func(t *testing.T) {
		other := &gauge{level: 3}
		val, err := ctx.Marshal(other)
		require.NoError(t, err)

		var back *counter
		err = ctx.Unmarshal(val, &back)
		var tm *jsbridge.TypeMismatchError
		require.ErrorAs(t, err, &tm)
	})
}

type gauge struct {
	level int
}

func (g *gauge) GetProperty(name string) (any, bool) {
	if name == "level" {
		return g.level, true
	}
	return nil, false
}

func (g *gauge) PropertyNames() []string {
	return []string{"level"}
}
