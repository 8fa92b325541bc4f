package twoddoc

import (
	"strings"
	"time"
)

// Encode renders a header in the version 04 layout
func (h *Header) Encode() string {
	var b strings.Builder
	b.WriteString("DC")
	b.WriteString(h.DocumentVersion)
	b.WriteString(h.CertificateAuthorityID)
	b.WriteString(h.PublicKeyID)
	b.WriteString(EncodeHeaderDate(h.CreationDate))
	b.WriteString(EncodeHeaderDate(h.SignatureDate))
	b.WriteString(h.DocumentType)
	b.WriteString(h.DocumentPerimeter)
	b.WriteString(h.DocumentCountry)

	return b.String()
}

// Encode renders one field, terminating variable length values with GS
func (f *Field) Encode(value string) string {
	if f.Fixed() {
		return f.Code + value
	}

	return f.Code + value + string(rune(GS))
}

// EncodeFields renders the listed fields in order. Fields without a value are
// written empty.
func EncodeFields(fields []Field, values map[string]string) string {
	var b strings.Builder
	for i := range fields {
		b.WriteString(fields[i].Encode(values[fields[i].Name]))
	}

	return b.String()
}

// FormatFieldDate renders t as DDMMYYYY, or DDMMYYYYHHMM when withTime is set
func FormatFieldDate(t time.Time, withTime bool) string {
	if withTime {
		return t.Format("020120061504")
	}

	return t.Format("02012006")
}
