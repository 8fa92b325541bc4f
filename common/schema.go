package common

import (
	_ "embed"

	"github.com/go-errors/errors"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed DCC.combined-schema.json
var dccSchemaJSON []byte

var dccSchema *gojsonschema.Schema

// dateFormatChecker accepts any string that ParseDate understands. The DCC
// schema uses both date and date-time for values issuers fill in loosely.
type dateFormatChecker struct{}

func (dateFormatChecker) IsFormat(input interface{}) bool {
	s, ok := input.(string)
	if !ok {
		return true
	}

	return IsDate(s)
}

func init() {
	// The valueset-uri keyword is not a validation keyword and is ignored by the validator
	gojsonschema.FormatCheckers.Add("date", dateFormatChecker{})
	gojsonschema.FormatCheckers.Add("date-time", dateFormatChecker{})

	var err error
	dccSchema, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(dccSchemaJSON))
	if err != nil {
		panic(errors.WrapPrefix(err, "Could not compile DCC schema", 0))
	}
}

// ValidateDCC checks a generic DCC document against the DCC 1.3.0 schema
func ValidateDCC(doc map[string]interface{}) error {
	result, err := dccSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return FormatError("Could not run DCC schema validation", err.Error())
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			details = append(details, resultErr.String())
		}

		return FormatError("DGC validation failed", details...)
	}

	return nil
}
