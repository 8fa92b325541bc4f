package twoddoc

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-errors/errors"
)

const (
	// Terminators of variable length fields
	GS = 0x1D
	RS = 0x1E

	// Separates the signed data from its signature
	US = 0x1F
)

// CharClass lists the characters a field may contain
type CharClass string

const (
	upper  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits = "0123456789"
)

const (
	ClassAlpha     CharClass = upper + "-./ "
	ClassAlphaNum  CharClass = digits + upper + "-./ "
	ClassNum       CharClass = digits
	ClassCode      CharClass = digits + upper
	ClassLetters   CharClass = upper
	ClassSignature CharClass = digits + upper + "="
)

func (c CharClass) Contains(b byte) bool {
	return strings.IndexByte(string(c), b) >= 0
}

// ParseFunc converts the raw text of a field to its typed value
type ParseFunc func(raw string, loc *time.Location) (interface{}, error)

type FieldType struct {
	Class CharClass
	Parse ParseFunc
}

var (
	Alpha    = &FieldType{Class: ClassAlpha, Parse: parseText}
	AlphaNum = &FieldType{Class: ClassAlphaNum, Parse: parseText}
	Num      = &FieldType{Class: ClassNum, Parse: parseNum}
	Date     = &FieldType{Class: ClassNum, Parse: parseFieldDate}
	Digits   = &FieldType{Class: ClassNum, Parse: parseText}
	Code     = &FieldType{Class: ClassCode, Parse: parseText}
	Letters  = &FieldType{Class: ClassLetters, Parse: parseText}
)

// Field declares one data field. Fixed length fields (MinLen == MaxLen) have no
// terminator, variable length fields end with GS or RS.
type Field struct {
	Code   string
	Name   string
	MinLen int
	MaxLen int
	Type   *FieldType
}

func (f *Field) Fixed() bool {
	return f.MinLen == f.MaxLen
}

// scan matches the field at pos and returns its raw value and the position after it
func (f *Field) scan(doc string, pos int) (value string, next int, ok bool) {
	if !strings.HasPrefix(doc[pos:], f.Code) {
		return "", pos, false
	}
	start := pos + len(f.Code)

	end := start
	for end < len(doc) && end-start < f.MaxLen && f.Type.Class.Contains(doc[end]) {
		end++
	}

	if end-start < f.MinLen {
		return "", pos, false
	}

	if f.Fixed() {
		return doc[start:end], end, true
	}

	if end >= len(doc) || (doc[end] != GS && doc[end] != RS) {
		return "", pos, false
	}

	return doc[start:end], end + 1, true
}

func parseText(raw string, _ *time.Location) (interface{}, error) {
	return raw, nil
}

func parseNum(raw string, _ *time.Location) (interface{}, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not parse number", 0)
	}

	return n, nil
}

// parseFieldDate reads DDMMYYYY[HHMM], defaulting to noon when the time is absent
func parseFieldDate(raw string, loc *time.Location) (interface{}, error) {
	if len(raw) != 8 && len(raw) != 12 {
		return nil, errors.Errorf("Could not parse date '%s': unexpected length", raw)
	}

	hours, minutes := "12", "00"
	if len(raw) == 12 {
		hours, minutes = raw[8:10], raw[10:12]
	}

	parts := []string{raw[0:2], raw[2:4], raw[4:8], hours, minutes}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.Errorf("Could not parse date '%s'", raw)
		}
		nums[i] = n
	}

	day, month, year, hour, minute := nums[0], nums[1], nums[2], nums[3], nums[4]
	if loc == nil {
		loc = time.Local
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month || t.Hour() != hour || t.Minute() != minute {
		return nil, errors.Errorf("Could not parse date '%s': out of range", raw)
	}

	return t, nil
}
