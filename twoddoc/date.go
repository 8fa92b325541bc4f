package twoddoc

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sanipasse/passcheck/common"
)

// NoDate is the header value of an undated document
const NoDate = "FFFF"

var dateEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// DecodeHeaderDate reads a header date: the number of days since 2000-01-01 in
// hexadecimal. The result is nil for NoDate.
func DecodeHeaderDate(s string) (*time.Time, error) {
	if s == "" || s == NoDate {
		return nil, nil
	}

	days, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return nil, common.FormatErrorf("Could not parse header date '%s'", s)
	}

	t := dateEpoch.AddDate(0, 0, int(days))
	return &t, nil
}

// EncodeHeaderDate is the inverse of DecodeHeaderDate
func EncodeHeaderDate(t *time.Time) string {
	if t == nil {
		return NoDate
	}

	days := int(t.UTC().Sub(dateEpoch).Hours() / 24)
	return fmt.Sprintf("%04X", days)
}
