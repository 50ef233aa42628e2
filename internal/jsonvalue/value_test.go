package jsonvalue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeObjectPreservesOrder(t *testing.T) {
	v, err := Decode([]byte(`{"b":1,"a":2,"c":{"z":1,"y":2}}`))
	require.NoError(t, err)
	obj, ok := v.(*Object)
	require.True(t, ok)
	require.Equal(t, []string{"b", "a", "c"}, obj.Keys())

	nested, ok := obj.Get("c")
	require.True(t, ok)
	nestedObj := nested.(*Object)
	require.Equal(t, []string{"z", "y"}, nestedObj.Keys())
}

func TestDecodeArray(t *testing.T) {
	v, err := Decode([]byte(`[1,"x",{"a":1}]`))
	require.NoError(t, err)
	arr, ok := v.(Array)
	require.True(t, ok)
	require.Len(t, arr, 3)
	require.Equal(t, float64(1), arr[0])
	require.Equal(t, "x", arr[1])
}

func TestObjectSetGetDelete(t *testing.T) {
	o := NewObject()
	o.Set("a", 1.0)
	o.Set("b", "x")
	v, ok := o.Get("a")
	require.True(t, ok)
	require.Equal(t, 1.0, v)

	o.Delete("a")
	_, ok = o.Get("a")
	require.False(t, ok)
	require.Equal(t, []string{"b"}, o.Keys())
}

func TestMarshalRoundTrip(t *testing.T) {
	v, err := Decode([]byte(`{"model":"claude-3","messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	out, err := Marshal(v)
	require.NoError(t, err)

	v2, err := Decode(out)
	require.NoError(t, err)
	require.Equal(t, v2.(*Object).GetString("model"), "claude-3")
}

func TestCloneIsIndependent(t *testing.T) {
	o := NewObject()
	o.Set("a", Array{1.0, 2.0})
	c := o.Clone()
	c.Set("a", Array{3.0})
	orig, _ := o.Get("a")
	require.Equal(t, Array{1.0, 2.0}, orig)
}
