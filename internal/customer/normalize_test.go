package customer

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"local format", "08123456789", "2348123456789", false},
		{"local with spaces", "0812 345 6789", "2348123456789", false},
		{"local with dashes", "0812-345-6789", "2348123456789", false},
		{"international with plus", "+2348123456789", "2348123456789", false},
		{"international with plus and spaces", "+234 812 345 6789", "2348123456789", false},
		{"international without plus", "2348123456789", "2348123456789", false},
		{"subscriber number", "8123456789", "2348123456789", false},
		{"too short", "0812345", "", true},
		{"too long", "081234567890", "", true},
		{"ten digits with trunk zero", "0812345678", "", true},
		{"thirteen digits wrong country", "4478123456789", "", true},
		{"letters only", "not a phone", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhone_LocalFormatKeepsSubscriberDigits(t *testing.T) {
	for _, local := range []string{"08012345678", "07030000000", "09099999999", "08100000001"} {
		got, err := NormalizePhone(local)
		require.NoError(t, err)
		assert.Len(t, got, 13)
		assert.Equal(t, "234", got[:3])
		assert.Equal(t, local[1:], got[3:])
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	for _, in := range []string{"2348012345678", "08012345678", "+234 701 234 5678", "9012345678"} {
		once, err := NormalizePhone(in)
		require.NoError(t, err)
		twice, err := NormalizePhone(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, in)
	}
}

func TestParseOptionalNonNegativeNumber(t *testing.T) {
	def := decimal.Zero

	tests := []struct {
		input string
		want  string
	}{
		{"", "0"},
		{"   ", "0"},
		{"1500", "1500"},
		{" 1500.50 ", "1500.5"},
		{"1,500.50", "1500.5"},
		{"0", "0"},
		{"abc", "0"},
		{"12abc", "0"},
		{"-200", "0"},
		{"NaN", "0"},
		{"Inf", "0"},
		{"0x10", "0"},
		{"2.5e3", "2500"},
		{"1e400", "0"},
		{"1e999999", "0"},
		{"1e-999999", "0"},
		{"-0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseOptionalNonNegativeNumber(tt.input, def)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseOptionalNonNegativeNumber_CustomDefault(t *testing.T) {
	def := decimal.NewFromInt(10)
	assert.True(t, ParseOptionalNonNegativeNumber("oops", def).Equal(def))
	assert.True(t, ParseOptionalNonNegativeNumber("5", def).Equal(decimal.NewFromInt(5)))
	assert.True(t, ParseOptionalNonNegativeNumber("1e400", def).Equal(def))
}

func TestParseOptionalNonNegativeNumber_BoundedExponent(t *testing.T) {
	for _, input := range []string{"1e308", "1e-300", "1e-999999"} {
		got := ParseOptionalNonNegativeNumber(input, decimal.Zero)

		f := got.InexactFloat64()
		assert.False(t, math.IsInf(f, 0), input)

		data, err := got.MarshalJSON()
		require.NoError(t, err)
		assert.Less(t, len(data), 400, input)
	}
}

func TestCleanCell(t *testing.T) {
	assert.Equal(t, "fullName", CleanCell("\ufefffullName"))
	assert.Equal(t, "Jane Doe", CleanCell("  Jane Doe\t"))
	assert.Equal(t, "", CleanCell("   "))
}
