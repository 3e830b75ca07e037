package money

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundsToCents(t *testing.T) {
	res, err := ParseExact("10.005")
	require.NoError(t, err)
	assert.Equal(t, Money(1001), res.Value)
	assert.True(t, res.Rounded)

	res, err = ParseExact(" 70000 ")
	require.NoError(t, err)
	assert.Equal(t, FromMajor(70000), res.Value)
	assert.False(t, res.Rounded)
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"abc", "NaN", "1,5", "Infinity"} {
		_, err := Parse(raw)
		assert.True(t, errors.Is(err, ErrNotNumeric), raw)
	}
	_, err := Parse("   ")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestParseRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		raw     string
		wantErr error
	}{
		{"92233720368547758.08", ErrOutOfRange},
		{"184467440737095516.17", ErrOutOfRange},
		{"100000000000000000000", ErrOutOfRange},
		{"-92233720368547758.09", ErrOutOfRange},
		{"1000000000000.00", ErrOutOfRange},
		{"999999999999.99", nil},
		{"-999999999999.99", nil},
	}
	for _, tc := range cases {
		res, err := ParseExact(tc.raw)
		if tc.wantErr != nil {
			assert.ErrorIs(t, err, tc.wantErr, tc.raw)
			assert.True(t, res.Value.IsZero(), tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.raw, res.Value.String())
	}

	var m Money
	assert.ErrorIs(t, json.Unmarshal([]byte(`"184467440737095516.17"`), &m), ErrOutOfRange)
	assert.ErrorIs(t, m.Scan(1e18), ErrOutOfRange)
	assert.ErrorIs(t, m.Scan(int64(math.MaxInt64)), ErrOutOfRange)
	assert.ErrorIs(t, m.Scan(math.NaN()), ErrNotNumeric)
	require.NoError(t, m.Scan(1234.565))
	assert.Equal(t, Money(123457), m)
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, "30.00", Percentage(FromMajor(30000), FromMajor(100000)))
	assert.Equal(t, "33.33", Percentage(FromMajor(1), FromMajor(3)))
	assert.Equal(t, "0.00", Percentage(FromMajor(5), 0))
}

func TestExceedsRatio(t *testing.T) {
	assert.False(t, ExceedsRatio(FromMajor(50), FromMajor(100), 50))
	assert.True(t, ExceedsRatio(FromMajor(50)+1, FromMajor(100), 50))
	assert.False(t, ExceedsRatio(FromMajor(1), 0, 50))
}

func TestJSONRoundTripUsesDecimalStrings(t *testing.T) {
	payload, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Amount: MustParse("1234.5")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"1234.50"}`, string(payload))

	var decoded struct {
		Amount Money `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount":99.99}`), &decoded))
	assert.Equal(t, Money(9999), decoded.Amount)
	assert.Error(t, json.Unmarshal([]byte(`{"amount":"oops"}`), &decoded))
}

func TestScan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan([]byte("150000.00")))
	assert.Equal(t, FromMajor(150000), m)
	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())
	assert.Error(t, m.Scan(struct{}{}))
}
