package verifier

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/sanipasse/passcheck/common"
	"github.com/sanipasse/passcheck/trust"
)

// Quirk describes a country that emitted malformed certificates before a cutoff
type Quirk struct {
	Country      string    `json:"country"`
	IssuedBefore time.Time `json:"issuedBefore"`
}

// Quirks are display hints for known issuer mistakes. They never affect verification.
type Quirks struct {
	NamesMaybeSwapped         bool `json:"namesMaybeSwapped,omitempty"`
	DateOfBirthMaybeLocalized bool `json:"dateOfBirthMaybeLocalized,omitempty"`
}

func (q Quirks) Any() bool {
	return q.NamesMaybeSwapped || q.DateOfBirthMaybeLocalized
}

// DGC is a verified EU Digital Green Certificate
type DGC struct {
	// Code is the scanned text, kept for fingerprinting and audit
	Code string `json:"code"`

	HCert    *common.DCC            `json:"hcert"`
	Document map[string]interface{} `json:"-"`

	KID       []byte     `json:"-"`
	KIDBase64 string     `json:"kid"`
	Issuer    string     `json:"issuer,omitempty"`
	IssuedAt  *time.Time `json:"issuedAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`

	Signer *trust.SignerRecord `json:"signer"`
	Quirks Quirks              `json:"quirks"`
}

type Verifier struct {
	store  *trust.Store
	now    func() time.Time
	quirks []Quirk
}

type Option func(*Verifier)

// WithClock replaces the wall clock used for the temporal and signer window checks
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
	}
}

func WithQuirks(quirks []Quirk) Option {
	return func(v *Verifier) {
		v.quirks = quirks
	}
}

func New(store *trust.Store, opts ...Option) *Verifier {
	v := &Verifier{
		store: store,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Decode verifies a scanned code, which may be wrapped in a deep link
func (v *Verifier) Decode(raw string) (*DGC, error) {
	return v.VerifyQREncoded([]byte(common.ExtractCodeFromLink(raw)))
}

func (v *Verifier) VerifyQREncoded(proofPrefixed []byte) (*DGC, error) {
	cwt, err := common.UnmarshalQREncoded(proofPrefixed)
	if err != nil {
		return nil, err
	}

	dgc, err := v.Verify(cwt)
	if err != nil {
		return nil, err
	}

	dgc.Code = string(proofPrefixed)
	return dgc, nil
}

func (v *Verifier) Verify(cwt *common.CWT) (*DGC, error) {
	protectedHeader, err := common.ReadProtectedHeader(cwt.Protected)
	if err != nil {
		return nil, err
	}

	kid, err := common.FindKID(protectedHeader, &cwt.Unprotected)
	if err != nil {
		return nil, err
	}

	// Decode and validate the payload before any trust decision
	hcert, err := common.ReadCWT(cwt)
	if err != nil {
		return nil, err
	}

	doc, err := common.ReadDCCDocument(hcert.RawDCC)
	if err != nil {
		return nil, err
	}

	err = common.ValidateDCC(doc)
	if err != nil {
		return nil, err
	}

	now := v.now()
	issuedAt, expiresAt, err := checkTemporalClaims(hcert, now)
	if err != nil {
		return nil, err
	}

	signer, err := v.verifySignature(cwt, protectedHeader, kid, now)
	if err != nil {
		return nil, err
	}

	dgc := &DGC{
		HCert:     hcert.DCC,
		Document:  doc,
		KID:       kid,
		KIDBase64: base64.StdEncoding.EncodeToString(kid),
		Issuer:    hcert.Issuer,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Signer:    signer,
	}
	dgc.Quirks = v.findQuirks(dgc)

	return dgc, nil
}

// checkTemporalClaims compares issued-at and expiration to now in whole seconds.
// A zero claim is absent.
func checkTemporalClaims(hcert *common.HealthCertificate, now time.Time) (issuedAt, expiresAt *time.Time, err error) {
	nowUnix := now.Unix()

	if hcert.IssuedAt != 0 {
		iat := time.Unix(hcert.IssuedAt, 0).UTC()
		if hcert.IssuedAt > nowUnix {
			return nil, nil, common.IssuedInFutureError(iat, now)
		}
		issuedAt = &iat
	}

	if hcert.ExpirationTime != 0 {
		exp := time.Unix(hcert.ExpirationTime, 0).UTC()
		if hcert.ExpirationTime < nowUnix {
			return nil, nil, common.ExpiredError(exp, now)
		}
		expiresAt = &exp
	}

	return issuedAt, expiresAt, nil
}

func (v *Verifier) verifySignature(cwt *common.CWT, protectedHeader *common.CWTHeader, kid []byte, now time.Time) (*trust.SignerRecord, error) {
	signer, err := v.store.FindDCC(kid)
	if err != nil {
		return nil, err
	}

	kidB64 := base64.StdEncoding.EncodeToString(kid)
	if !signer.ValidAt(now) {
		return nil, common.InvalidSignerCertificateError(kidB64, signer.String(),
			"Signer certificate is not valid at "+now.UTC().Format(time.RFC3339))
	}

	pkVerifier, err := trust.NewVerifier(signer)
	if err != nil {
		return nil, common.InvalidSignerCertificateError(kidB64, signer.String(), err.Error())
	}

	// Prefer the algorithm the message asserts; a mismatching family fails below
	pkVerifier = pkVerifier.Adapt(trust.Algorithm(protectedHeader.Alg))

	toBeSigned, err := common.SigStructure(cwt.Protected, cwt.Payload)
	if err != nil {
		return nil, common.FormatError(err.Error())
	}

	err = pkVerifier.Verify(toBeSigned, cwt.Signature)
	if err != nil {
		return nil, common.SignatureError(kidB64, err)
	}

	return signer, nil
}

// issuingCountry is the CWT issuer claim, or the country of the first entry
func (dgc *DGC) issuingCountry() string {
	if dgc.Issuer != "" {
		return strings.ToUpper(dgc.Issuer)
	}

	h := dgc.HCert
	switch {
	case len(h.Vaccinations) > 0:
		return strings.ToUpper(h.Vaccinations[0].CountryOfVaccination)
	case len(h.Tests) > 0:
		return strings.ToUpper(h.Tests[0].CountryOfTest)
	case len(h.Recoveries) > 0:
		return strings.ToUpper(h.Recoveries[0].CountryOfTest)
	}

	return ""
}

func (v *Verifier) findQuirks(dgc *DGC) Quirks {
	if dgc.IssuedAt == nil {
		return Quirks{}
	}

	country := dgc.issuingCountry()
	for _, q := range v.quirks {
		if strings.EqualFold(q.Country, country) && dgc.IssuedAt.Before(q.IssuedBefore) {
			return Quirks{
				NamesMaybeSwapped:         true,
				DateOfBirthMaybeLocalized: true,
			}
		}
	}

	return Quirks{}
}
