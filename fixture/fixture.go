// Package fixture signs 2D-Doc and DGC codes with throwaway keys, so that the
// decoders can be exercised without real issuer material.
package fixture

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"math/big"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-errors/errors"
	"github.com/sanipasse/passcheck/common"
	"github.com/sanipasse/passcheck/trust"
	"github.com/sanipasse/passcheck/twoddoc"
)

type Signer struct {
	Algorithm trust.Algorithm
	KID       []byte

	key crypto.Signer
}

// NewECDSASigner creates an ES256 signer on a fresh P-256 key
func NewECDSASigner(kid []byte) (*Signer, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not generate ECDSA key", 0)
	}

	return &Signer{Algorithm: trust.ALG_ES256, KID: kid, key: key}, nil
}

// NewRSASigner creates a signer on a fresh 2048 bit RSA key, declared for alg
func NewRSASigner(kid []byte, alg trust.Algorithm) (*Signer, error) {
	if !alg.IsRSA() {
		return nil, errors.Errorf("Algorithm %s is not an RSA algorithm", alg)
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not generate RSA key", 0)
	}

	return &Signer{Algorithm: alg, KID: kid, key: key}, nil
}

// Record describes the signer the way the trust store holds it
func (s *Signer) Record(notBefore, notAfter time.Time) (*trust.SignerRecord, error) {
	spki, err := x509.MarshalPKIXPublicKey(s.key.Public())
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not marshal public key", 0)
	}

	fingerprint := sha256.Sum256(spki)

	return &trust.SignerRecord{
		Subject:            "CN=Fixture " + s.Algorithm.String(),
		Issuer:             "CN=Fixture CSCA",
		NotBefore:          notBefore,
		NotAfter:           notAfter,
		SignatureAlgorithm: s.Algorithm.String(),
		Fingerprint:        hex.EncodeToString(fingerprint[:]),
		PublicKeyAlgorithm: keyAlgorithm(s.Algorithm),
		PublicKey:          spki,
	}, nil
}

func keyAlgorithm(alg trust.Algorithm) trust.KeyAlgorithm {
	hashName := trust.HashName("SHA-" + hashBits(alg.Hash()))

	switch {
	case alg.IsECDSA():
		curves := map[trust.Algorithm]string{
			trust.ALG_ES256: "P-256",
			trust.ALG_ES384: "P-384",
			trust.ALG_ES512: "P-521",
		}
		return trust.KeyAlgorithm{Name: "ECDSA", NamedCurve: curves[alg]}
	case alg.IsRSAPSS():
		return trust.KeyAlgorithm{Name: "RSA-PSS", Hash: hashName}
	default:
		return trust.KeyAlgorithm{Name: "RSASSA-PKCS1-v1_5", Hash: hashName}
	}
}

func hashBits(h crypto.Hash) string {
	switch h {
	case crypto.SHA384:
		return "384"
	case crypto.SHA512:
		return "512"
	}

	return "256"
}

// Sign signs data with the declared algorithm
func (s *Signer) Sign(data []byte) ([]byte, error) {
	return s.SignWith(s.Algorithm, data)
}

// SignWith signs data with alg, which must fit the key type
func (s *Signer) SignWith(alg trust.Algorithm, data []byte) ([]byte, error) {
	h := alg.Hash().New()
	h.Write(data)
	hash := h.Sum(nil)

	switch key := s.key.(type) {
	case *ecdsa.PrivateKey:
		r, ss, err := ecdsa.Sign(rand.Reader, key, hash)
		if err != nil {
			return nil, errors.WrapPrefix(err, "Could not sign hash", 0)
		}
		return convertSignatureComponents(r, ss, key.Params()), nil
	case *rsa.PrivateKey:
		var signature []byte
		var err error
		if alg.IsRSAPSS() {
			signature, err = rsa.SignPSS(rand.Reader, key, alg.Hash(), hash, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
		} else {
			signature, err = rsa.SignPKCS1v15(rand.Reader, key, alg.Hash(), hash)
		}
		if err != nil {
			return nil, errors.WrapPrefix(err, "Could not sign hash", 0)
		}
		return signature, nil
	}

	return nil, errors.Errorf("Unsupported key type %T", s.key)
}

// convertSignatureComponents renders r and s as the fixed length concatenation COSE expects
func convertSignatureComponents(r, s *big.Int, params *elliptic.CurveParams) []byte {
	keyByteSize := (params.BitSize + 7) / 8

	signature := make([]byte, 2*keyByteSize)
	r.FillBytes(signature[:keyByteSize])
	s.FillBytes(signature[keyByteSize:])

	return signature
}

type DGCSpec struct {
	Issuer         string
	IssuedAt       time.Time
	ExpirationTime time.Time

	// DCC is the health certificate document, as it would be JSON encoded
	DCC map[string]interface{}

	Compress         bool
	KIDInUnprotected bool

	// Algorithm asserted and used for signing, defaulting to the signer's
	Algorithm trust.Algorithm
}

// IssueDGC builds, signs and QR encodes a COSE_Sign1 health certificate
func (s *Signer) IssueDGC(spec *DGCSpec) ([]byte, error) {
	alg := spec.Algorithm
	if alg == 0 {
		alg = s.Algorithm
	}

	kid := s.KID
	protected := &common.CWTHeader{Alg: int(alg)}
	unprotected := common.CWTHeader{}
	if spec.KIDInUnprotected {
		unprotected.KID = &kid
	} else {
		protected.KID = &kid
	}

	protectedCbor, err := cbor.Marshal(protected)
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not CBOR marshal CWT header", 0)
	}

	// Serialize DCC separately, and then the rest of the payload
	dccCbor, err := cbor.Marshal(spec.DCC)
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not CBOR marshal DCC", 0)
	}

	payload := &common.CWTPayload{
		Issuer:         spec.Issuer,
		ExpirationTime: unixOrZero(spec.ExpirationTime),
		IssuedAt:       unixOrZero(spec.IssuedAt),
		HCert:          &common.RawHealthCertificate{DCC: dccCbor},
	}

	payloadCbor, err := cbor.Marshal(payload)
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not CBOR marshal CWT payload", 0)
	}

	toBeSigned, err := common.SigStructure(protectedCbor, payloadCbor)
	if err != nil {
		return nil, err
	}

	signature, err := s.SignWith(alg, toBeSigned)
	if err != nil {
		return nil, err
	}

	return common.MarshalQREncoded(&common.CWT{
		Protected:   protectedCbor,
		Unprotected: unprotected,
		Payload:     payloadCbor,
		Signature:   signature,
	}, spec.Compress)
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.Unix()
}

// Sign2DDoc appends the unit separator and the base32 signature to data
func (s *Signer) Sign2DDoc(data string) (string, error) {
	signature, err := s.Sign([]byte(data))
	if err != nil {
		return "", err
	}

	return data + string(rune(twoddoc.US)) + twoddoc.EncodeSignature(signature), nil
}

// TwoDDoc renders and signs a complete 2D-Doc
func (s *Signer) TwoDDoc(header *twoddoc.Header, fields []twoddoc.Field, values map[string]string) (string, error) {
	return s.Sign2DDoc(header.Encode() + twoddoc.EncodeFields(fields, values))
}
