package common

import (
	"github.com/fxamacker/cbor/v2"
)

type DCC struct {
	Version     string `cbor:"ver" json:"ver"`
	DateOfBirth string `cbor:"dob" json:"dob"`

	Name         *DCCName          `cbor:"nam" json:"nam"`
	Vaccinations []*DCCVaccination `cbor:"v,omitempty" json:"v,omitempty"`
	Tests        []*DCCTest        `cbor:"t,omitempty" json:"t,omitempty"`
	Recoveries   []*DCCRecovery    `cbor:"r,omitempty" json:"r,omitempty"`
}

type DCCName struct {
	FamilyName             string `cbor:"fn,omitempty" json:"fn,omitempty"`
	StandardizedFamilyName string `cbor:"fnt" json:"fnt"`
	GivenName              string `cbor:"gn,omitempty" json:"gn,omitempty"`
	StandardizedGivenName  string `cbor:"gnt,omitempty" json:"gnt,omitempty"`
}

type DCCVaccination struct {
	DiseaseTargeted       string `cbor:"tg" json:"tg"`
	Vaccine               string `cbor:"vp" json:"vp"`
	MedicinalProduct      string `cbor:"mp" json:"mp"`
	Manufacturer          string `cbor:"ma" json:"ma"`
	DoseNumber            int    `cbor:"dn" json:"dn"`
	TotalSeriesOfDoses    int    `cbor:"sd" json:"sd"`
	DateOfVaccination     string `cbor:"dt" json:"dt"`
	CountryOfVaccination  string `cbor:"co" json:"co"`
	CertificateIssuer     string `cbor:"is" json:"is"`
	CertificateIdentifier string `cbor:"ci" json:"ci"`
}

type DCCTest struct {
	DiseaseTargeted         string `cbor:"tg" json:"tg"`
	TypeOfTest              string `cbor:"tt" json:"tt"`
	TestName                string `cbor:"nm,omitempty" json:"nm,omitempty"`
	TestNameAndManufacturer string `cbor:"ma,omitempty" json:"ma,omitempty"`
	DateTimeOfCollection    string `cbor:"sc" json:"sc"`
	TestResult              string `cbor:"tr" json:"tr"`
	TestingCentre           string `cbor:"tc,omitempty" json:"tc,omitempty"`
	CountryOfTest           string `cbor:"co" json:"co"`
	CertificateIssuer       string `cbor:"is" json:"is"`
	CertificateIdentifier   string `cbor:"ci" json:"ci"`
}

type DCCRecovery struct {
	DiseaseTargeted         string `cbor:"tg" json:"tg"`
	DateOfFirstPositiveTest string `cbor:"fr" json:"fr"`
	CountryOfTest           string `cbor:"co" json:"co"`
	CertificateIssuer       string `cbor:"is" json:"is"`
	CertificateValidFrom    string `cbor:"df" json:"df"`
	CertificateValidUntil   string `cbor:"du" json:"du"`
	CertificateIdentifier   string `cbor:"ci" json:"ci"`
}

func ReadDCC(dccCbor []byte) (dcc *DCC, err error) {
	err = cbor.Unmarshal(dccCbor, &dcc)
	if err != nil {
		return nil, FormatError("Could not CBOR unmarshal DCC", err.Error())
	}

	if dcc == nil {
		return nil, FormatError("Could not process empty DCC")
	}

	return dcc, nil
}

// ReadDCCDocument decodes the DCC as a generic document, suitable for JSON schema validation
func ReadDCCDocument(dccCbor []byte) (map[string]interface{}, error) {
	var rawDCC map[interface{}]interface{}
	err := cbor.Unmarshal(dccCbor, &rawDCC)
	if err != nil {
		return nil, FormatError("Could not CBOR unmarshal DCC structure", err.Error())
	}

	// Fix up inner map[interface{}]interface{} fields so value can be JSON serialized
	return fixMap(rawDCC), nil
}

func fixMap(val map[interface{}]interface{}) map[string]interface{} {
	res := map[string]interface{}{}
	for k, v := range val {
		tk, ok := k.(string)
		if !ok {
			continue
		}

		res[tk] = fixValue(v)
	}

	return res
}

func fixSlice(val []interface{}) []interface{} {
	res := make([]interface{}, 0, len(val))
	for _, v := range val {
		res = append(res, fixValue(v))
	}

	return res
}

func fixValue(v interface{}) interface{} {
	switch tv := v.(type) {
	case map[interface{}]interface{}:
		return fixMap(tv)
	case []interface{}:
		return fixSlice(tv)
	case cbor.Tag:
		// Some issuers tag full-date strings; the schema only knows about the content
		return fixValue(tv.Content)
	default:
		return v
	}
}
