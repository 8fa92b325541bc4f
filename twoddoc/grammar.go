package twoddoc

import (
	"time"

	"github.com/sanipasse/passcheck/common"
)

// Kind is the payload shape of a document
type Kind int

const (
	KindVaccine Kind = iota + 1
	KindTest
)

func (k Kind) String() string {
	switch k {
	case KindVaccine:
		return "vaccine"
	case KindTest:
		return "test"
	}

	return "unknown"
}

// Alternative is one mutually exclusive payload layout
type Alternative struct {
	Kind   Kind
	Fields []Field
}

// Grammar is the full layout of a document: header, one payload alternative,
// the unit separator and the base32 signature.
type Grammar struct {
	Header       []Field
	Alternatives []Alternative
}

// Match holds the raw captures of a successful structural match
type Match struct {
	// Data is the exact signed text: header and payload
	Data      string
	Kind      Kind
	Values    map[string]string
	Signature string
}

// Compile assembles a grammar from field lists. Alternatives are tried in order.
func Compile(header []Field, alternatives ...Alternative) *Grammar {
	return &Grammar{
		Header:       header,
		Alternatives: alternatives,
	}
}

// DefaultGrammar accepts vaccination and test certificates
var DefaultGrammar = Compile(
	HeaderFields,
	Alternative{Kind: KindVaccine, Fields: VaccineFields},
	Alternative{Kind: KindTest, Fields: TestFields},
)

// Match checks doc against the grammar and extracts every field by name
func (g *Grammar) Match(doc string) (*Match, error) {
	header := map[string]string{}
	pos, ok := scanFields(doc, 0, g.Header, header)
	if !ok {
		return nil, common.FormatError("Could not match 2D-Doc header")
	}

	for _, alt := range g.Alternatives {
		values := make(map[string]string, len(header)+len(alt.Fields))
		for k, v := range header {
			values[k] = v
		}

		end, ok := scanFields(doc, pos, alt.Fields, values)
		if !ok || end >= len(doc) || doc[end] != US {
			continue
		}

		signature := doc[end+1:]
		if !isSignature(signature) {
			continue
		}

		return &Match{
			Data:      doc[:end],
			Kind:      alt.Kind,
			Values:    values,
			Signature: signature,
		}, nil
	}

	return nil, common.FormatError("Could not match 2D-Doc payload and signature")
}

func scanFields(doc string, pos int, fields []Field, values map[string]string) (int, bool) {
	for i := range fields {
		value, next, ok := fields[i].scan(doc, pos)
		if !ok {
			return pos, false
		}

		values[fields[i].Name] = value
		pos = next
	}

	return pos, true
}

func isSignature(s string) bool {
	if len(s) == 0 {
		return false
	}

	for i := 0; i < len(s); i++ {
		if !ClassSignature.Contains(s[i]) {
			return false
		}
	}

	return true
}

// Values are the typed field values of a match
type Values map[string]interface{}

// Extract parses every field of the list. A field missing from the match means
// the document type and the matched payload disagree.
func (m *Match) Extract(fields []Field, loc *time.Location) (Values, error) {
	res := make(Values, len(fields))
	for i := range fields {
		f := &fields[i]
		raw, ok := m.Values[f.Name]
		if !ok {
			return nil, common.FormatErrorf("Missing data for field %s", f.Name)
		}

		v, err := f.Type.Parse(raw, loc)
		if err != nil {
			return nil, common.FormatError("Could not parse field "+f.Name, err.Error())
		}

		res[f.Name] = v
	}

	return res, nil
}

func (v Values) str(name string) string {
	s, _ := v[name].(string)
	return s
}

func (v Values) num(name string) int {
	n, _ := v[name].(int)
	return n
}

func (v Values) date(name string) time.Time {
	t, _ := v[name].(time.Time)
	return t
}
