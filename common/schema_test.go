package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validVaccinationDocument() map[string]interface{} {
	return map[string]interface{}{
		"ver": "1.3.0",
		"dob": "1964",
		"nam": map[string]interface{}{"fnt": "MUSTERMANN", "fn": "Mustermann"},
		"v": []interface{}{
			map[string]interface{}{
				"tg": "840539006",
				"vp": "1119349007",
				"mp": "EU/1/20/1528",
				"ma": "ORG-100030215",
				"dn": 2,
				"sd": 2,
				"dt": "2021-05-29",
				"co": "DE",
				"is": "Robert Koch-Institut",
				"ci": "URN:UVCI:01DE/IZ12345A/5CWLU12RNOB9RXSEOP6FG8#W",
			},
		},
	}
}

func TestValidateDCC(t *testing.T) {
	require.NoError(t, ValidateDCC(validVaccinationDocument()))
}

func TestValidateDCCAcceptsLooseDates(t *testing.T) {
	doc := validVaccinationDocument()
	doc["v"].([]interface{})[0].(map[string]interface{})["dt"] = "2021-05-29T00:00:00+02:00"

	require.NoError(t, ValidateDCC(doc))
}

func TestValidateDCCReportsViolations(t *testing.T) {
	doc := validVaccinationDocument()
	delete(doc, "nam")
	doc["v"].([]interface{})[0].(map[string]interface{})["dn"] = 12

	err := ValidateDCC(doc)
	de, ok := AsDecodeError(err)
	require.True(t, ok)
	require.Equal(t, KindFormat, de.Kind)
	require.GreaterOrEqual(t, len(de.Details), 2)
}

func TestValidateDCCRequiresAnEntry(t *testing.T) {
	doc := validVaccinationDocument()
	delete(doc, "v")

	require.Equal(t, KindFormat, KindOf(ValidateDCC(doc)))
}
