package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Op   string `json:"op"`
	Path string `json:"path"`
	Data any    `json:"data,omitempty"`
}

func TestByName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		want   Codec
		binary bool
	}{
		{name: "", want: JSON},
		{name: "json", want: JSON},
		{name: "cbor", want: CBOR, binary: true},
	}
	for _, tc := range tests {
		c, err := ByName(tc.name)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want.Name(), c.Name())
		assert.Equal(t, tc.binary, c.Binary())
	}

	_, err := ByName("msgpack")
	assert.Error(t, err)
}

func TestCBORDecodesMapsAsStringKeyed(t *testing.T) {
	t.Parallel()
	in := envelope{
		Op:   "publish",
		Path: "/user/r1/home/robot/system/info/response",
		Data: map[string]any{"NetworkInterfaces": []any{"eth0"}},
	}
	data, err := CBOR.Marshal(in)
	require.NoError(t, err)

	var out envelope
	require.NoError(t, CBOR.Unmarshal(data, &out))
	assert.Equal(t, in.Op, out.Op)
	assert.Equal(t, in.Path, out.Path)
	props, ok := out.Data.(map[string]any)
	require.True(t, ok, "got %T", out.Data)
	assert.Equal(t, []any{"eth0"}, props["NetworkInterfaces"])
}

func TestCBOREncodingIsDeterministic(t *testing.T) {
	t.Parallel()
	v := map[string]any{"b": 1, "a": 2, "c": []any{"x"}}
	first, err := CBOR.Marshal(v)
	require.NoError(t, err)
	for range 10 {
		again, err := CBOR.Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
