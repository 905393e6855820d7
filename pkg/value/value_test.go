package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBit(t *testing.T) {
	assert.True(t, FromBit(true).IsOne())
	assert.True(t, FromBit(false).IsZero())
}

func TestBit(t *testing.T) {
	b, ok := Zero.Bit()
	assert.False(t, b)
	assert.True(t, ok)

	b, ok = One.Bit()
	assert.True(t, b)
	assert.True(t, ok)

	_, ok = Unknown.Bit()
	assert.False(t, ok)
}

func TestMarshalJSON(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Zero, "0"},
		{One, "1"},
		{Unknown, `"?"`},
	}
	for _, c := range cases {
		out, err := json.Marshal(c.v)
		require.NoError(t, err)
		assert.Equal(t, c.want, string(out))
	}
}

func TestUnmarshalJSON(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte("0"), &v))
	assert.True(t, v.IsZero())

	require.NoError(t, json.Unmarshal([]byte("1"), &v))
	assert.True(t, v.IsOne())

	require.NoError(t, json.Unmarshal([]byte(`"?"`), &v))
	assert.True(t, v.IsUnknown())

	err := json.Unmarshal([]byte(`"garbage"`), &v)
	assert.Error(t, err)
}

func TestZeroValueIsZero(t *testing.T) {
	var v Value
	assert.True(t, v.IsZero())
}

func TestIsBinary(t *testing.T) {
	assert.True(t, Zero.IsBinary())
	assert.True(t, One.IsBinary())
	assert.False(t, Unknown.IsBinary())
}
