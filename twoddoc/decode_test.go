package twoddoc

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sanipasse/passcheck/common"
	"github.com/sanipasse/passcheck/trust"
	"github.com/stretchr/testify/require"
)

type testSigner struct {
	key   *ecdsa.PrivateKey
	store *trust.Store
}

func newTestSigner(t *testing.T, publicKeyID string) *testSigner {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	spki, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	store := trust.NewStore()
	store.Add2DDoc(publicKeyID, &trust.SignerRecord{Subject: "Test key", PublicKey: spki})

	return &testSigner{key: key, store: store}
}

func (ts *testSigner) signature(t *testing.T, data string) []byte {
	hash := sha256.Sum256([]byte(data))
	r, s, err := ecdsa.Sign(rand.Reader, ts.key, hash[:])
	require.NoError(t, err)

	signature := make([]byte, 64)
	r.FillBytes(signature[:32])
	s.FillBytes(signature[32:])

	return signature
}

func (ts *testSigner) sign(t *testing.T, data string) string {
	return data + string(rune(US)) + EncodeSignature(ts.signature(t, data))
}

func testHeader(publicKeyID, documentType string) *Header {
	created := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

	return &Header{
		DocumentVersion:        "04",
		CertificateAuthorityID: "FR05",
		PublicKeyID:            publicKeyID,
		CreationDate:           &created,
		DocumentType:           documentType,
		DocumentPerimeter:      "01",
		DocumentCountry:        "FR",
	}
}

var testValues = map[string]string{
	"tested_first_name": "JEANNE",
	"tested_last_name":  "DUPONT",
	"tested_birth_date": "03021990",
	"sex":               "F",
	"analysis_code":     "945006",
	"analysis_result":   "N",
	"analysis_datetime": "010620211030",
}

var vaccineValues = map[string]string{
	"vaccinated_last_name":  "DUPONT",
	"vaccinated_first_name": "JEAN PIERRE",
	"vaccinated_birth_date": "03021990",
	"disease":               "COVID-19",
	"prophylactic_agent":    "J07BX03",
	"vaccine":               "COMIRNATY",
	"vaccine_maker":         "PFIZER/BIONTECH",
	"doses_received":        "2",
	"doses_expected":        "2",
	"last_dose_date":        "01062021",
	"cycle_state":           "CO",
}

func TestDecodeTest(t *testing.T) {
	ts := newTestSigner(t, "TST1")
	header := testHeader("TST1", DocumentTypeTest)
	data := header.Encode() + EncodeFields(TestFields, testValues)
	doc := ts.sign(t, data)

	cert, err := NewDecoder(ts.store, time.UTC).Decode(doc)
	require.NoError(t, err)

	require.Equal(t, "04", cert.DocumentVersion)
	require.Equal(t, "FR05", cert.CertificateAuthorityID)
	require.Equal(t, "TST1", cert.PublicKeyID)
	require.Equal(t, *header.CreationDate, *cert.CreationDate)
	require.Nil(t, cert.SignatureDate)
	require.Equal(t, "B2", cert.DocumentType)
	require.Equal(t, "01", cert.DocumentPerimeter)
	require.Equal(t, "FR", cert.DocumentCountry)
	require.Equal(t, data, cert.Data)
	require.Equal(t, doc, cert.Code)
	require.Nil(t, cert.Vaccine)

	require.Equal(t, &TestCertificate{
		TestedFirstName:  "JEANNE",
		TestedLastName:   "DUPONT",
		TestedBirthDate:  time.Date(1990, 2, 3, 12, 0, 0, 0, time.UTC),
		Sex:              "F",
		AnalysisCode:     "945006",
		AnalysisResult:   "N",
		AnalysisDateTime: time.Date(2021, 6, 1, 10, 30, 0, 0, time.UTC),
	}, cert.Test)

	require.Equal(t, Labels{
		CertificateAuthority: "ANTS",
		PublicKey:            "Certificat inconnu",
		Sex:                  "Féminin",
		AnalysisResult:       "Négatif",
	}, cert.Labels)
}

func TestDecodeVaccine(t *testing.T) {
	ts := newTestSigner(t, "TST1")
	doc := ts.sign(t, testHeader("TST1", DocumentTypeVaccine).Encode()+EncodeFields(VaccineFields, vaccineValues))

	cert, err := NewDecoder(ts.store, time.UTC).Decode(doc)
	require.NoError(t, err)
	require.Nil(t, cert.Test)

	v := cert.Vaccine
	require.Equal(t, "JEAN PIERRE", v.VaccinatedFirstName)
	require.Equal(t, "PFIZER/BIONTECH", v.VaccineMaker)
	require.Equal(t, 2, v.DosesReceived)
	require.Equal(t, 2, v.DosesExpected)
	require.Equal(t, time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC), v.LastDoseDate)
	require.Equal(t, "CO", v.CycleState)
	require.Equal(t, Labels{CertificateAuthority: "ANTS", PublicKey: "Certificat inconnu"}, cert.Labels)
}

func TestDecodeFromLink(t *testing.T) {
	ts := newTestSigner(t, "TST1")
	doc := ts.sign(t, testHeader("TST1", DocumentTypeTest).Encode()+EncodeFields(TestFields, testValues))

	links := []string{
		"https://bonjour.tousanticovid.gouv.fr/app/wallet?v=" + url.QueryEscape(doc),
		"https://bonjour.tousanticovid.gouv.fr/app/wallet2d#" + url.PathEscape(doc),
	}

	for _, link := range links {
		cert, err := NewDecoder(ts.store, time.UTC).Decode(link)
		require.NoError(t, err, link)
		require.Equal(t, doc, cert.Code)
	}
}

func TestDecodeCorruptedSignature(t *testing.T) {
	ts := newTestSigner(t, "TST1")
	data := testHeader("TST1", DocumentTypeTest).Encode() + EncodeFields(TestFields, testValues)
	signature := ts.signature(t, data)
	decoder := NewDecoder(ts.store, time.UTC)

	for i := range signature {
		corrupted := append([]byte{}, signature...)
		corrupted[i] ^= 0x80

		_, err := decoder.Decode(data + string(rune(US)) + EncodeSignature(corrupted))
		require.Equal(t, common.KindSignature, common.KindOf(err), i)
	}
}

func TestDecodeSignedDataMismatch(t *testing.T) {
	ts := newTestSigner(t, "TST1")
	doc := ts.sign(t, testHeader("TST1", DocumentTypeTest).Encode()+EncodeFields(TestFields, testValues))

	_, err := NewDecoder(ts.store, time.UTC).Decode(strings.Replace(doc, "JEANNE", "JEANNA", 1))
	require.Equal(t, common.KindSignature, common.KindOf(err))
}

func TestDecodeUnknownSigner(t *testing.T) {
	ts := newTestSigner(t, "TST1")
	other := newTestSigner(t, "TST2")
	doc := other.sign(t, testHeader("TST2", DocumentTypeTest).Encode()+EncodeFields(TestFields, testValues))

	_, err := NewDecoder(ts.store, time.UTC).Decode(doc)
	require.Equal(t, common.KindUnknownSigner, common.KindOf(err))
}

func TestDecodeFormatErrors(t *testing.T) {
	ts := newTestSigner(t, "TST1")
	data := testHeader("TST1", DocumentTypeTest).Encode() + EncodeFields(TestFields, testValues)
	doc := ts.sign(t, data)

	cases := map[string]string{
		"empty":              "",
		"garbage":            "hello world",
		"no signature":       data,
		"empty signature":    data + string(rune(US)),
		"lowercase in sig":   doc + "a",
		"truncated header":   doc[:10],
		"unterminated field": strings.Replace(doc, "JEANNE\x1d", "JEANNE", 1),
	}

	for name, code := range cases {
		_, err := NewDecoder(ts.store, time.UTC).Decode(code)
		require.Equal(t, common.KindFormat, common.KindOf(err), name)
	}
}

func TestDecodeDocumentTypeMismatch(t *testing.T) {
	ts := newTestSigner(t, "TST1")

	// A test document type carrying vaccination fields
	doc := ts.sign(t, testHeader("TST1", DocumentTypeTest).Encode()+EncodeFields(VaccineFields, vaccineValues))

	_, err := NewDecoder(ts.store, time.UTC).Decode(doc)
	de, ok := common.AsDecodeError(err)
	require.True(t, ok)
	require.Equal(t, common.KindFormat, de.Kind)
	require.Contains(t, de.Reason, "Missing data for field")
}

func TestDecodeBundledKeyWithForeignSignature(t *testing.T) {
	store, err := trust.Default()
	require.NoError(t, err)

	ts := newTestSigner(t, "AV01")
	doc := ts.sign(t, testHeader("AV01", DocumentTypeTest).Encode()+EncodeFields(TestFields, testValues))

	_, err = NewDecoder(store, time.UTC).Decode(doc)
	require.Equal(t, common.KindSignature, common.KindOf(err))
}

func TestLabels(t *testing.T) {
	require.Equal(t, "ANTS", CertificateAuthority("FR05"))
	require.Equal(t, "Autorité inconnue", CertificateAuthority("XX99"))
	require.Contains(t, PublicKeyName("AV01"), "CNAM")
	require.Equal(t, "Certificat inconnu", PublicKeyName("ZZZZ"))
	require.Equal(t, "Féminin", Sex("F"))
	require.Equal(t, "Négatif", AnalysisResult(ResultNegative))
	require.Equal(t, "Indéterminé", AnalysisResult("?"))
}
