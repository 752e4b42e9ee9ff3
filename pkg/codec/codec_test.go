package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = map[string]any{"a": 1, "b": "string"}

func TestJSONSubset(t *testing.T) {
	for _, name := range []string{"json", "yaml"} {
		t.Run(name, func(t *testing.T) {
			data, err := Dumps(name, sample)
			require.NoError(t, err)

			var out map[string]any
			require.NoError(t, Loads(name, data, &out))
			assert.Equal(t, "string", out["b"])
			assert.EqualValues(t, 1, out["a"])
		})
	}
}

func TestBinary(t *testing.T) {
	in := []byte{0x00, 0xff, 'h', 'i'}
	data, err := Dumps("binary", in)
	require.NoError(t, err)

	var out []byte
	require.NoError(t, Loads("binary", data, &out))
	assert.Equal(t, in, out)
}

func TestBinary_RejectsOtherTypes(t *testing.T) {
	_, err := Binary{}.Dumps(42)
	assert.Error(t, err)

	var n int
	assert.Error(t, Binary{}.Loads([]byte("aGk="), &n))
}

func TestRaw(t *testing.T) {
	data, err := Dumps("raw", "foo")
	require.NoError(t, err)
	assert.Equal(t, []byte("foo"), data)

	var out []byte
	require.NoError(t, Loads("raw", data, &out))
	assert.Equal(t, []byte("foo"), out)

	out[0] = 'g'
	assert.Equal(t, []byte("foo"), data, "loaded bytes must not alias the input")

	_, err = Raw{}.Dumps(map[string]int{"a": 1})
	assert.Error(t, err)
}

func TestRaw_ChainedWithBinary(t *testing.T) {
	c, err := Get("raw|binary")
	require.NoError(t, err)

	data, err := c.Dumps("foo")
	require.NoError(t, err)
	assert.Equal(t, "Zm9v", string(data))

	var out string
	require.NoError(t, c.Loads(data, &out))
	assert.Equal(t, "foo", out)
}

func TestCombinators(t *testing.T) {
	in := map[string]string{"foo": "bar"}
	c, err := Get("json|binary")
	require.NoError(t, err)
	assert.IsType(t, Chain{}, c)

	data, err := c.Dumps(in)
	require.NoError(t, err)

	var plain map[string]string
	assert.Error(t, JSON{}.Loads(data, &plain), "output should be base64, not json")

	var out map[string]string
	require.NoError(t, c.Loads(data, &out))
	assert.Equal(t, in, out)
}

func TestGet_Unknown(t *testing.T) {
	_, err := Get("pickle")
	assert.True(t, errors.Is(err, ErrUnknownCodec))
}

func TestRegister(t *testing.T) {
	Register("Custom", JSON{})
	c, err := Get("custom")
	require.NoError(t, err)
	assert.Equal(t, JSON{}, c)
}

func TestEmptyChain(t *testing.T) {
	_, err := Chain{}.Dumps(1)
	assert.Error(t, err)
	assert.Error(t, Chain{}.Loads(nil, new(int)))
}
