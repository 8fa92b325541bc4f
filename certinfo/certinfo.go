// Package certinfo normalizes decoded 2D-Doc and DGC certificates into one
// representation that the validity rules work on.
package certinfo

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/sanipasse/passcheck/common"
	"github.com/sanipasse/passcheck/twoddoc"
	"github.com/sanipasse/passcheck/verifier"
)

type Type string

const (
	TypeVaccination Type = "vaccination"
	TypeTest        Type = "test"
)

type Format string

const (
	FormatTwoDDoc Format = "2ddoc"
	FormatDGC     Format = "dgc"
)

// Coded values used in DGC test and recovery entries
const (
	DGCResultNotDetected = "260415000"
	DGCResultDetected    = "260373001"

	// Test type given to recoveries, which are backed by a positive PCR
	RecoveryTestType = "LP6464-4"
)

// Cycle state of a 2D-Doc vaccination that needs no further dose
const CycleStateComplete = "TE"

type Source struct {
	Format  Format               `json:"format"`
	TwoDDoc *twoddoc.Certificate `json:"2ddoc,omitempty"`
	DGC     *verifier.DGC        `json:"dgc,omitempty"`
}

type Vaccination struct {
	VaccinationDate   time.Time `json:"vaccinationDate"`
	ProphylacticAgent string    `json:"prophylacticAgent"`

	// Product is the vaccine product: the 2D-Doc vaccine name, or the DGC
	// medicinal product. The 2D-Doc prophylactic agent is a shared ATC class.
	Product string `json:"product"`

	DosesReceived int `json:"dosesReceived"`
	DosesExpected int `json:"dosesExpected"`

	// DosesExpectedRaw is the number as printed on the certificate, before the
	// cycle complete correction
	DosesExpectedRaw int  `json:"dosesExpectedRaw"`
	CycleComplete    bool `json:"cycleComplete"`
}

type Test struct {
	TestDate       time.Time `json:"testDate"`
	TestType       string    `json:"testType"`
	IsNegative     bool      `json:"isNegative"`
	IsInconclusive bool      `json:"isInconclusive"`
	IsRecovery     bool      `json:"isRecovery,omitempty"`
}

// CommonCertificateInfo is a tagged union: Vaccination is set for
// TypeVaccination, Test for TypeTest.
type CommonCertificateInfo struct {
	Type        Type      `json:"type"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	DateOfBirth time.Time `json:"dateOfBirth"`
	Code        string    `json:"code"`
	Fingerprint string    `json:"fingerprint"`
	Source      Source    `json:"source"`

	Vaccination *Vaccination `json:"vaccination,omitempty"`
	Test        *Test        `json:"test,omitempty"`

	Quirks verifier.Quirks `json:"quirks"`
}

// Fingerprint hashes the upper cased country and the certificate identifier.
// It is only meant for blacklist lookups.
func Fingerprint(country, identifier string) string {
	sum := sha256.Sum256([]byte(strings.ToUpper(country) + identifier))
	return hex.EncodeToString(sum[:])
}

func From2DDoc(cert *twoddoc.Certificate) (*CommonCertificateInfo, error) {
	info := &CommonCertificateInfo{
		Code:        cert.Code,
		Fingerprint: Fingerprint(cert.DocumentCountry, cert.Data),
		Source:      Source{Format: FormatTwoDDoc, TwoDDoc: cert},
	}

	switch {
	case cert.Vaccine != nil:
		v := cert.Vaccine
		complete := v.CycleState == CycleStateComplete
		expected := v.DosesExpected
		if complete {
			// A completed cycle can keep the product's usual number of doses,
			// after a prior infection for instance
			expected = v.DosesReceived
		}

		info.Type = TypeVaccination
		info.FirstName = v.VaccinatedFirstName
		info.LastName = v.VaccinatedLastName
		info.DateOfBirth = v.VaccinatedBirthDate
		info.Vaccination = &Vaccination{
			VaccinationDate:   v.LastDoseDate,
			ProphylacticAgent: v.ProphylacticAgent,
			Product:           v.Vaccine,
			DosesReceived:     v.DosesReceived,
			DosesExpected:     expected,
			DosesExpectedRaw:  v.DosesExpected,
			CycleComplete:     complete,
		}
	case cert.Test != nil:
		t := cert.Test
		info.Type = TypeTest
		info.FirstName = t.TestedFirstName
		info.LastName = t.TestedLastName
		info.DateOfBirth = t.TestedBirthDate
		info.Test = &Test{
			TestDate:       t.AnalysisDateTime,
			TestType:       t.AnalysisCode,
			IsNegative:     t.AnalysisResult == twoddoc.ResultNegative,
			IsInconclusive: t.AnalysisResult != twoddoc.ResultNegative && t.AnalysisResult != twoddoc.ResultPositive,
		}
	default:
		return nil, common.UnsupportedCertificateError("2D-Doc carries neither a test nor a vaccination")
	}

	return info, nil
}

func FromDGC(dgc *verifier.DGC) (*CommonCertificateInfo, error) {
	h := dgc.HCert
	if h == nil {
		return nil, common.UnsupportedCertificateError("DGC has no health certificate")
	}

	dob, err := common.ParseDate(h.DateOfBirth)
	if err != nil {
		// Partial or localized dates of birth are common, they only matter for boosters
		dob = time.Time{}
	}

	info := &CommonCertificateInfo{
		DateOfBirth: dob,
		Code:        dgc.Code,
		Source:      Source{Format: FormatDGC, DGC: dgc},
		Quirks:      dgc.Quirks,
	}
	info.FirstName, info.LastName = names(h.Name)

	switch {
	case len(h.Vaccinations) > 0:
		v := h.Vaccinations[0]
		date, err := common.ParseDate(v.DateOfVaccination)
		if err != nil {
			return nil, common.FormatError("Could not parse vaccination date", err.Error())
		}

		info.Type = TypeVaccination
		info.Fingerprint = Fingerprint(v.CountryOfVaccination, v.CertificateIdentifier)
		info.Vaccination = &Vaccination{
			VaccinationDate:   date,
			ProphylacticAgent: v.MedicinalProduct,
			Product:           v.MedicinalProduct,
			DosesReceived:     v.DoseNumber,
			DosesExpected:     v.TotalSeriesOfDoses,
			DosesExpectedRaw:  v.TotalSeriesOfDoses,
		}
	case len(h.Tests) > 0:
		t := h.Tests[0]
		date, err := common.ParseDate(t.DateTimeOfCollection)
		if err != nil {
			return nil, common.FormatError("Could not parse sample collection date", err.Error())
		}

		info.Type = TypeTest
		info.Fingerprint = Fingerprint(t.CountryOfTest, t.CertificateIdentifier)
		info.Test = &Test{
			TestDate:       date,
			TestType:       t.TypeOfTest,
			IsNegative:     t.TestResult == DGCResultNotDetected,
			IsInconclusive: t.TestResult != DGCResultNotDetected && t.TestResult != DGCResultDetected,
		}
	case len(h.Recoveries) > 0:
		r := h.Recoveries[0]
		date, err := common.ParseDate(r.DateOfFirstPositiveTest)
		if err != nil {
			return nil, common.FormatError("Could not parse first positive test date", err.Error())
		}

		info.Type = TypeTest
		info.Fingerprint = Fingerprint(r.CountryOfTest, r.CertificateIdentifier)
		info.Test = &Test{
			TestDate:   date,
			TestType:   RecoveryTestType,
			IsRecovery: true,
		}
	default:
		return nil, common.UnsupportedCertificateError("DGC has no vaccination, test or recovery entry")
	}

	return info, nil
}

func names(n *common.DCCName) (first, last string) {
	if n == nil {
		return "-", ""
	}

	first = n.GivenName
	if first == "" {
		first = strings.ReplaceAll(n.StandardizedGivenName, "<", " ")
	}
	if first == "" {
		first = "-"
	}

	last = n.FamilyName
	if last == "" {
		last = strings.ReplaceAll(n.StandardizedFamilyName, "<", " ")
	}

	return first, last
}
