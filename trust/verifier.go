package trust

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"math/big"

	"github.com/go-errors/errors"
)

// Verifier checks signatures for one public key. Both certificate formats verify
// through it: 2D-Doc with ES256, DGC with whatever the signer was declared for.
type Verifier struct {
	Algorithm Algorithm
	PublicKey interface{}
}

// NewVerifier imports the SPKI public key of a signer record
func NewVerifier(record *SignerRecord) (*Verifier, error) {
	alg, err := record.PublicKeyAlgorithm.Algorithm()
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not determine key algorithm", 0)
	}

	pk, err := x509.ParsePKIXPublicKey(record.PublicKey)
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not parse SPKI public key", 0)
	}

	switch pk.(type) {
	case *ecdsa.PublicKey:
		if !alg.IsECDSA() {
			return nil, errors.Errorf("ECDSA public key declared for algorithm %s", alg)
		}
	case *rsa.PublicKey:
		if !alg.IsRSA() {
			return nil, errors.Errorf("RSA public key declared for algorithm %s", alg)
		}
	default:
		return nil, errors.Errorf("Unsupported public key type %T", pk)
	}

	return &Verifier{Algorithm: alg, PublicKey: pk}, nil
}

// Adapt returns a verifier for the algorithm a message asserts. Some signers use
// both RSA-PSS and PKCS#1 v1.5 with the same key, so within the RSA family the
// message wins. Across families the mismatch makes Verify fail.
func (v *Verifier) Adapt(asserted Algorithm) *Verifier {
	if asserted == 0 || asserted == v.Algorithm {
		return v
	}

	return &Verifier{Algorithm: asserted, PublicKey: v.PublicKey}
}

// Verify checks signature over data, which is hashed according to the algorithm
func (v *Verifier) Verify(data, signature []byte) error {
	if !v.Algorithm.Known() {
		return errors.Errorf("Unsupported signature algorithm %s", v.Algorithm)
	}

	h := v.Algorithm.Hash().New()
	h.Write(data)
	hash := h.Sum(nil)

	switch pk := v.PublicKey.(type) {
	case *ecdsa.PublicKey:
		return verifyECDSASignature(v.Algorithm, pk, hash, signature)
	case *rsa.PublicKey:
		return verifyRSASignature(v.Algorithm, pk, hash, signature)
	}

	return errors.Errorf("Encountered invalid public key type in trust store")
}

func verifyECDSASignature(alg Algorithm, pk *ecdsa.PublicKey, hash, signature []byte) error {
	if !alg.IsECDSA() {
		return errors.Errorf("Incorrect algorithm type %s for ECDSA public key", alg)
	}

	keyByteSize := (pk.Curve.Params().BitSize + 7) / 8
	if len(signature) != keyByteSize*2 {
		return errors.Errorf("Signature has an incorrect length")
	}

	r := new(big.Int).SetBytes(signature[:keyByteSize])
	s := new(big.Int).SetBytes(signature[keyByteSize:])

	ok := ecdsa.Verify(pk, hash, r, s)
	if !ok {
		return errors.Errorf("Signature does not verify against ECDSA public key")
	}

	return nil
}

func verifyRSASignature(alg Algorithm, pk *rsa.PublicKey, hash, signature []byte) error {
	var err error
	switch {
	case alg.IsRSAPSS():
		err = rsa.VerifyPSS(pk, alg.Hash(), hash, signature, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto})
	case alg.IsRSAPKCS1():
		err = rsa.VerifyPKCS1v15(pk, alg.Hash(), hash, signature)
	default:
		return errors.Errorf("Incorrect algorithm type %s for RSA public key", alg)
	}

	if err != nil {
		return errors.Errorf("Signature does not verify against RSA public key")
	}

	return nil
}
