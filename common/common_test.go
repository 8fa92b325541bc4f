package common

import (
	"testing"
	"time"

	"github.com/go-errors/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestExtractCodeFromLink(t *testing.T) {
	cases := map[string]string{
		"  DC04FR000000  ": "DC04FR000000",
		"HC1:NCFOXN%TS3DH": "HC1:NCFOXN%TS3DH",

		"https://bonjour.tousanticovid.gouv.fr/app/wallet?v=DC04ABC":       "DC04ABC",
		"https://bonjour.tousanticovid.gouv.fr/app/walletdcc#HC1:6BF%2B70": "HC1:6BF+70",
		"https://example.org/nothing":                                      "https://example.org/nothing",
	}

	for in, expected := range cases {
		require.Equal(t, expected, ExtractCodeFromLink(in), in)
	}
}

func TestParseDate(t *testing.T) {
	cases := map[string]time.Time{
		"2021-06-01":                time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
		"2021-06-01T10:20:30Z":      time.Date(2021, 6, 1, 10, 20, 30, 0, time.UTC),
		"2021-06-01T12:20:30+02:00": time.Date(2021, 6, 1, 10, 20, 30, 0, time.UTC),
		"1964-03":                   time.Date(1964, 3, 1, 0, 0, 0, 0, time.UTC),
		"1964":                      time.Date(1964, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	for in, expected := range cases {
		parsed, err := ParseDate(in)
		require.NoError(t, err, in)
		require.True(t, expected.Equal(parsed), in)
	}

	require.False(t, IsDate("01.02.1990"))
	require.False(t, IsDate(""))
}

func TestDecodeErrorKinds(t *testing.T) {
	now := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

	cases := map[ErrorKind]error{
		KindFormat:                   FormatError("bad"),
		KindUnknownSigner:            UnknownSignerError("AAAA"),
		KindInvalidSignerCertificate: InvalidSignerCertificateError("AAAA", "CN=x", "expired"),
		KindSignature:                SignatureError("AAAA", nil),
		KindIssuedInFuture:           IssuedInFutureError(now.Add(time.Second), now),
		KindExpired:                  ExpiredError(now.Add(-time.Second), now),
		KindUnsupportedCertificate:   UnsupportedCertificateError("empty"),
	}

	for kind, err := range cases {
		require.Equal(t, kind, KindOf(err))

		// Wrapping keeps the kind reachable
		wrapped := errors.WrapPrefix(err, "Could not decode", 0)
		require.Equal(t, kind, KindOf(wrapped))
	}

	require.Equal(t, KindNone, KindOf(errors.Errorf("plain")))
	require.Equal(t, KindNone, KindOf(nil))
}

func TestDecodeErrorLocalize(t *testing.T) {
	de, ok := AsDecodeError(UnknownSignerError("AV01"))
	require.True(t, ok)

	require.Contains(t, de.Localize(language.French), "AV01")
	require.Contains(t, de.Localize(language.French), "non reconnue")
	require.Contains(t, de.Localize(language.English), "unrecognized")
}
