package twoddoc

import (
	"encoding/base32"
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/sanipasse/passcheck/common"
	"github.com/sanipasse/passcheck/trust"
)

type Header struct {
	DocumentVersion        string     `json:"document_version"`
	CertificateAuthorityID string     `json:"certificate_authority_id"`
	PublicKeyID            string     `json:"public_key_id"`
	CreationDate           *time.Time `json:"creation_date,omitempty"`
	SignatureDate          *time.Time `json:"signature_date,omitempty"`
	DocumentType           string     `json:"document_type"`
	DocumentPerimeter      string     `json:"document_perimeter"`
	DocumentCountry        string     `json:"document_country"`
}

type TestCertificate struct {
	TestedFirstName  string    `json:"tested_first_name"`
	TestedLastName   string    `json:"tested_last_name"`
	TestedBirthDate  time.Time `json:"tested_birth_date"`
	Sex              string    `json:"sex"`
	AnalysisCode     string    `json:"analysis_code"`
	AnalysisResult   string    `json:"analysis_result"`
	AnalysisDateTime time.Time `json:"analysis_datetime"`
}

type VaccineCertificate struct {
	VaccinatedLastName  string    `json:"vaccinated_last_name"`
	VaccinatedFirstName string    `json:"vaccinated_first_name"`
	VaccinatedBirthDate time.Time `json:"vaccinated_birth_date"`
	Disease             string    `json:"disease"`
	ProphylacticAgent   string    `json:"prophylactic_agent"`
	Vaccine             string    `json:"vaccine"`
	VaccineMaker        string    `json:"vaccine_maker"`
	DosesReceived       int       `json:"doses_received"`
	DosesExpected       int       `json:"doses_expected"`
	LastDoseDate        time.Time `json:"last_dose_date"`
	CycleState          string    `json:"cycle_state"`
}

// Certificate is a decoded and verified 2D-Doc. Exactly one of Test and
// Vaccine is set, as selected by the document type.
type Certificate struct {
	Header

	// Code is the scanned text, Data the signed part of it
	Code      string `json:"code"`
	Data      string `json:"-"`
	Signature string `json:"signature"`

	Test    *TestCertificate    `json:"test,omitempty"`
	Vaccine *VaccineCertificate `json:"vaccine,omitempty"`

	Labels Labels `json:"labels"`

	Signer *trust.SignerRecord `json:"-"`
}

type Decoder struct {
	store    *trust.Store
	grammar  *Grammar
	location *time.Location
}

// NewDecoder creates a decoder verifying against store. Payload dates without a
// zone are read in loc, which defaults to the local zone.
func NewDecoder(store *trust.Store, loc *time.Location) *Decoder {
	if loc == nil {
		loc = time.Local
	}

	return &Decoder{
		store:    store,
		grammar:  DefaultGrammar,
		location: loc,
	}
}

func (d *Decoder) Decode(raw string) (*Certificate, error) {
	doc := common.ExtractCodeFromLink(raw)

	m, err := d.grammar.Match(doc)
	if err != nil {
		return nil, err
	}

	publicKeyID := m.Values["public_key_id"]
	signer, err := d.verify(m.Data, publicKeyID, m.Signature)
	if err != nil {
		return nil, err
	}

	cert, err := d.extract(m)
	if err != nil {
		return nil, err
	}

	cert.Code = doc
	cert.Signer = signer

	return cert, nil
}

func (d *Decoder) verify(data, publicKeyID, signatureBase32 string) (*trust.SignerRecord, error) {
	signer, err := d.store.Find2DDoc(publicKeyID)
	if err != nil {
		return nil, err
	}

	verifier, err := trust.NewVerifier(signer)
	if err != nil {
		return nil, common.InvalidSignerCertificateError(publicKeyID, signer.Subject, err.Error())
	}

	signature, err := decodeBase32(signatureBase32)
	if err != nil {
		return nil, common.SignatureError(publicKeyID, err)
	}

	err = verifier.Verify([]byte(data), signature)
	if err != nil {
		return nil, common.SignatureError(publicKeyID, err)
	}

	return signer, nil
}

func (d *Decoder) extract(m *Match) (*Certificate, error) {
	creationDate, err := DecodeHeaderDate(m.Values["creation_date"])
	if err != nil {
		return nil, err
	}

	signatureDate, err := DecodeHeaderDate(m.Values["signature_date"])
	if err != nil {
		return nil, err
	}

	cert := &Certificate{
		Header: Header{
			DocumentVersion:        m.Values["document_version"],
			CertificateAuthorityID: m.Values["certificate_authority_id"],
			PublicKeyID:            m.Values["public_key_id"],
			CreationDate:           creationDate,
			SignatureDate:          signatureDate,
			DocumentType:           m.Values["document_type"],
			DocumentPerimeter:      m.Values["document_perimeter"],
			DocumentCountry:        m.Values["document_country"],
		},
		Data:      m.Data,
		Signature: m.Signature,
	}
	cert.Labels = Labels{
		CertificateAuthority: CertificateAuthority(cert.CertificateAuthorityID),
		PublicKey:            PublicKeyName(cert.PublicKeyID),
	}

	if cert.DocumentType == DocumentTypeTest {
		v, err := m.Extract(TestFields, d.location)
		if err != nil {
			return nil, err
		}

		cert.Test = &TestCertificate{
			TestedFirstName:  v.str("tested_first_name"),
			TestedLastName:   v.str("tested_last_name"),
			TestedBirthDate:  v.date("tested_birth_date"),
			Sex:              v.str("sex"),
			AnalysisCode:     v.str("analysis_code"),
			AnalysisResult:   v.str("analysis_result"),
			AnalysisDateTime: v.date("analysis_datetime"),
		}
		cert.Labels.Sex = Sex(cert.Test.Sex)
		cert.Labels.AnalysisResult = AnalysisResult(cert.Test.AnalysisResult)

		return cert, nil
	}

	v, err := m.Extract(VaccineFields, d.location)
	if err != nil {
		return nil, err
	}

	cert.Vaccine = &VaccineCertificate{
		VaccinatedLastName:  v.str("vaccinated_last_name"),
		VaccinatedFirstName: v.str("vaccinated_first_name"),
		VaccinatedBirthDate: v.date("vaccinated_birth_date"),
		Disease:             v.str("disease"),
		ProphylacticAgent:   v.str("prophylactic_agent"),
		Vaccine:             v.str("vaccine"),
		VaccineMaker:        v.str("vaccine_maker"),
		DosesReceived:       v.num("doses_received"),
		DosesExpected:       v.num("doses_expected"),
		LastDoseDate:        v.date("last_dose_date"),
		CycleState:          v.str("cycle_state"),
	}

	return cert, nil
}

// decodeBase32 accepts signatures with or without padding
func decodeBase32(s string) ([]byte, error) {
	trimmed := strings.TrimRight(s, "=")
	signature, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(trimmed)
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not base32 decode signature", 0)
	}

	return signature, nil
}

// EncodeSignature renders a signature the way it is printed in a 2D-Doc
func EncodeSignature(signature []byte) string {
	return base32.StdEncoding.EncodeToString(signature)
}
