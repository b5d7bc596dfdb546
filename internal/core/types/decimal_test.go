package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want Quantity
	}{
		{"3", 30_000},
		{"2.5", 25_000},
		{"-1.25", -12_500},
		{"0.00015", 1},
		{"+7.1", 71_000},
		{".5", 5_000},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuantity(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseQuantity("")
	assert.Error(t, err)
	_, err = ParseQuantity("abc")
	assert.Error(t, err)
}

func TestParseQuantity_OutOfRange(t *testing.T) {
	for _, in := range []string{
		"1000000000000000",
		"-1000000000000000",
		"922337203685477.9999",
		"1e20",
		"-1e300",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseQuantity(in)
			assert.ErrorIs(t, err, ErrQuantityRange)
		})
	}

	q, err := ParseQuantity("922337203685477.5807")
	require.NoError(t, err)
	assert.Equal(t, Quantity(math.MaxInt64), q)

	_, err = ParseQuantity("1.-5")
	assert.Error(t, err)

	var v struct {
		A Quantity `json:"a"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"a": 1000000000000000}`), &v))
}

func TestQuantity_Add(t *testing.T) {
	sum, err := NewQuantity(2).Add(NewQuantity(-5))
	require.NoError(t, err)
	assert.Equal(t, NewQuantity(-3), sum)

	_, err = Quantity(math.MaxInt64).Add(1)
	assert.ErrorIs(t, err, ErrQuantityRange)
	_, err = Quantity(math.MinInt64 + 1).Add(-2)
	assert.ErrorIs(t, err, ErrQuantityRange)
}

func TestQuantity_Display(t *testing.T) {
	assert.Equal(t, "3", NewQuantity(3).Display())
	assert.Equal(t, "2.5", MustQuantity("2.5").Display())
	assert.Equal(t, "-0.125", MustQuantity("-0.125").Display())
	assert.Equal(t, "0", Quantity(0).Display())
}

func TestQuantity_JSON(t *testing.T) {
	var v struct {
		A Quantity `json:"a"`
		B Quantity `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 1.5, "b": "2"}`), &v))
	assert.Equal(t, MustQuantity("1.5"), v.A)
	assert.Equal(t, NewQuantity(2), v.B)

	out, err := json.Marshal(v.A)
	require.NoError(t, err)
	assert.Equal(t, "1.5000", string(out))
}

func TestQuantity_Value(t *testing.T) {
	q := MustQuantity("2.5")
	assert.True(t, q.Value(MustMoney("4.20")).Equal(MustMoney("10.5")))
}
