package trust

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/go-errors/errors"
	"github.com/samber/lo"
	"github.com/sanipasse/passcheck/common"
)

//go:embed twoddoc_keys.json
var bundledTwoDDocKeys []byte

// SignerRecord is one recognized signer. For the EU format it describes a
// Document Signing Certificate, for 2D-Doc a bare registry key.
type SignerRecord struct {
	KeyID              string       `json:"keyId,omitempty"`
	SerialNumber       string       `json:"serialNumber,omitempty"`
	Subject            string       `json:"subject"`
	Issuer             string       `json:"issuer,omitempty"`
	NotBefore          time.Time    `json:"notBefore"`
	NotAfter           time.Time    `json:"notAfter"`
	SignatureAlgorithm string       `json:"signatureAlgorithm,omitempty"`
	Fingerprint        string       `json:"fingerprint,omitempty"`
	PublicKeyAlgorithm KeyAlgorithm `json:"publicKeyAlgorithm"`

	// PublicKey is the DER encoded SubjectPublicKeyInfo, base64 in JSON
	PublicKey []byte `json:"publicKeyPem"`
}

// ValidAt reports whether t lies in [NotBefore, NotAfter). Zero bounds are open.
func (sr *SignerRecord) ValidAt(t time.Time) bool {
	if !sr.NotBefore.IsZero() && t.Before(sr.NotBefore) {
		return false
	}

	if !sr.NotAfter.IsZero() && !t.Before(sr.NotAfter) {
		return false
	}

	return true
}

func (sr *SignerRecord) String() string {
	return fmt.Sprintf("%s (issuer %s, valid %s - %s)", sr.Subject, sr.Issuer,
		sr.NotBefore.Format(time.RFC3339), sr.NotAfter.Format(time.RFC3339))
}

// Store maps key identifiers to signers for both formats. It is filled once at
// startup and only read afterwards, so it can be shared without locking.
type Store struct {
	dcc     map[string]*SignerRecord
	twoDDoc map[string]*SignerRecord
}

// Top level keys of the wrapped layout, which separates the two formats
const (
	storeKeyDCC     = "dcc"
	storeKeyTwoDDoc = "2ddoc"
)

func NewStore() *Store {
	return &Store{
		dcc:     map[string]*SignerRecord{},
		twoDDoc: map[string]*SignerRecord{},
	}
}

// Default returns a store holding the bundled 2D-Doc registry
func Default() (*Store, error) {
	var keys map[string]*SignerRecord
	err := json.Unmarshal(bundledTwoDDocKeys, &keys)
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not JSON unmarshal bundled 2D-Doc keys", 0)
	}

	s := NewStore()
	for id, record := range keys {
		s.Add2DDoc(id, record)
	}

	return s, nil
}

// Load reads a trust store snapshot. The document is either a flat mapping of
// base64 key identifiers to DSC records, or that mapping wrapped under "dcc"
// next to a "2ddoc" mapping of registry keys. A document without any signer
// is an error.
func Load(r io.Reader) (*Store, error) {
	var doc map[string]json.RawMessage
	err := json.NewDecoder(r).Decode(&doc)
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not JSON unmarshal trust store", 0)
	}

	dccRecords, twoDDocRecords := doc, map[string]json.RawMessage{}
	if isWrappedStore(doc) {
		dccRecords, err = unmarshalSection(doc, storeKeyDCC)
		if err != nil {
			return nil, err
		}

		twoDDocRecords, err = unmarshalSection(doc, storeKeyTwoDDoc)
		if err != nil {
			return nil, err
		}
	}

	s := NewStore()
	for kid, raw := range dccRecords {
		record, err := unmarshalRecord(kid, raw)
		if err != nil {
			return nil, err
		}
		if record == nil {
			continue
		}
		record.KeyID = kid
		s.dcc[kid] = record
	}

	for id, raw := range twoDDocRecords {
		record, err := unmarshalRecord(id, raw)
		if err != nil {
			return nil, err
		}
		if record == nil {
			continue
		}
		s.Add2DDoc(id, record)
	}

	if len(s.dcc) == 0 && len(s.twoDDoc) == 0 {
		return nil, errors.Errorf("Could not find any signer in trust store")
	}

	return s, nil
}

func isWrappedStore(doc map[string]json.RawMessage) bool {
	if len(doc) == 0 {
		return false
	}

	return lo.Every([]string{storeKeyDCC, storeKeyTwoDDoc}, lo.Keys(doc))
}

func unmarshalSection(doc map[string]json.RawMessage, key string) (map[string]json.RawMessage, error) {
	raw, ok := doc[key]
	if !ok {
		return nil, nil
	}

	var section map[string]json.RawMessage
	err := json.Unmarshal(raw, &section)
	if err != nil {
		return nil, errors.WrapPrefix(err, fmt.Sprintf("Could not JSON unmarshal trust store section %s", key), 0)
	}

	return section, nil
}

func unmarshalRecord(keyID string, raw json.RawMessage) (*SignerRecord, error) {
	var record *SignerRecord
	err := json.Unmarshal(raw, &record)
	if err != nil {
		return nil, errors.WrapPrefix(err, fmt.Sprintf("Could not JSON unmarshal signer %s", keyID), 0)
	}

	return record, nil
}

func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapPrefix(err, fmt.Sprintf("Could not read trust store file %s", path), 0)
	}

	return Load(bytes.NewReader(data))
}

// Merge adds all signers of other, overriding records with the same key id
func (s *Store) Merge(other *Store) {
	for kid, record := range other.dcc {
		s.dcc[kid] = record
	}

	for id, record := range other.twoDDoc {
		s.twoDDoc[id] = record
	}
}

// AddDCC registers a Document Signing Certificate under its raw key identifier
func (s *Store) AddDCC(kid []byte, record *SignerRecord) {
	kidB64 := base64.StdEncoding.EncodeToString(kid)
	record.KeyID = kidB64
	s.dcc[kidB64] = record
}

// Add2DDoc registers a 2D-Doc key under its four character identifier
func (s *Store) Add2DDoc(publicKeyID string, record *SignerRecord) {
	record.KeyID = publicKeyID
	if record.PublicKeyAlgorithm.Name == "" {
		record.PublicKeyAlgorithm = KeyAlgorithm{Name: "ECDSA", NamedCurve: "P-256"}
	}
	s.twoDDoc[publicKeyID] = record
}

// FindDCC looks up the signer of a DGC by key identifier, compared on its base64 rendering
func (s *Store) FindDCC(kid []byte) (*SignerRecord, error) {
	kidB64 := base64.StdEncoding.EncodeToString(kid)
	record, ok := s.dcc[kidB64]
	if !ok {
		return nil, common.UnknownSignerError(kidB64)
	}

	return record, nil
}

// Find2DDoc looks up a 2D-Doc key by its exact, case sensitive, identifier
func (s *Store) Find2DDoc(publicKeyID string) (*SignerRecord, error) {
	record, ok := s.twoDDoc[publicKeyID]
	if !ok {
		return nil, common.UnknownSignerError(publicKeyID)
	}

	return record, nil
}

// KeyIDs lists the registered identifiers, DCC key ids first
func (s *Store) KeyIDs() (dcc []string, twoDDoc []string) {
	dcc = lo.Keys(s.dcc)
	twoDDoc = lo.Keys(s.twoDDoc)
	sort.Strings(dcc)
	sort.Strings(twoDDoc)

	return dcc, twoDDoc
}
