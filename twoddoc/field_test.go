package twoddoc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFieldScan(t *testing.T) {
	name := &Field{Code: "F0", Name: "tested_first_name", MinLen: 0, MaxLen: 60, Type: Alpha}

	value, next, ok := name.scan("F0JEAN-PIERRE\x1dF1", 0)
	require.True(t, ok)
	require.Equal(t, "JEAN-PIERRE", value)
	require.Equal(t, 14, next)

	// Empty variable length values are allowed
	value, _, ok = name.scan("F0\x1eF1", 0)
	require.True(t, ok)
	require.Equal(t, "", value)

	// A variable length value needs a terminator
	_, _, ok = name.scan("F0JEAN", 0)
	require.False(t, ok)

	// Lowercase is outside the alpha class
	_, _, ok = name.scan("F0Jean\x1d", 0)
	require.False(t, ok)

	_, _, ok = name.scan("F1JEAN\x1d", 0)
	require.False(t, ok)

	date := &Field{Code: "F2", Name: "tested_birth_date", MinLen: 8, MaxLen: 8, Type: Date}
	value, next, ok = date.scan("F203021990F3", 0)
	require.True(t, ok)
	require.Equal(t, "03021990", value)
	require.Equal(t, 10, next)

	_, _, ok = date.scan("F20302199", 0)
	require.False(t, ok)
}

func TestParseFieldDate(t *testing.T) {
	d, err := parseFieldDate("03021990", time.UTC)
	require.NoError(t, err)
	require.Equal(t, time.Date(1990, 2, 3, 12, 0, 0, 0, time.UTC), d)

	d, err = parseFieldDate("010620211030", time.UTC)
	require.NoError(t, err)
	require.Equal(t, time.Date(2021, 6, 1, 10, 30, 0, 0, time.UTC), d)

	for _, raw := range []string{"31022021", "0102202", "01132021", "010620212460", "AB022021"} {
		_, err = parseFieldDate(raw, time.UTC)
		require.Error(t, err, raw)
	}
}

func TestParseNum(t *testing.T) {
	n, err := parseNum("2", nil)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestHeaderDates(t *testing.T) {
	d, err := DecodeHeaderDate("0000")
	require.NoError(t, err)
	require.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), *d)

	d, err = DecodeHeaderDate(NoDate)
	require.NoError(t, err)
	require.Nil(t, d)
	require.Equal(t, NoDate, EncodeHeaderDate(nil))

	for _, days := range []int{0, 1, 365, 366, 0x1A2B, 0x7FFF, 0xFFFE} {
		encoded := EncodeHeaderDate(timePtr(dateEpoch.AddDate(0, 0, days)))
		require.Len(t, encoded, 4)

		decoded, err := DecodeHeaderDate(encoded)
		require.NoError(t, err)
		require.Equal(t, dateEpoch.AddDate(0, 0, days), *decoded, days)
	}

	_, err = DecodeHeaderDate("XYZ1")
	require.Error(t, err)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestEncodeFields(t *testing.T) {
	encoded := EncodeFields(TestFields[:3], map[string]string{
		"tested_first_name": "JEANNE",
		"tested_last_name":  "DUPONT",
		"tested_birth_date": "03021990",
	})

	require.Equal(t, "F0JEANNE\x1dF1DUPONT\x1dF203021990", encoded)
}
