package trust

import (
	"crypto"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-errors/errors"
)

// Algorithm is a COSE signature algorithm identifier
type Algorithm int

const (
	ALG_ES256 Algorithm = -7
	ALG_ES384 Algorithm = -35
	ALG_ES512 Algorithm = -36
	ALG_PS256 Algorithm = -37
	ALG_PS384 Algorithm = -38
	ALG_PS512 Algorithm = -39
	ALG_RS256 Algorithm = -257
	ALG_RS384 Algorithm = -258
	ALG_RS512 Algorithm = -259
)

var algorithmNames = map[Algorithm]string{
	ALG_ES256: "ES256",
	ALG_ES384: "ES384",
	ALG_ES512: "ES512",
	ALG_PS256: "PS256",
	ALG_PS384: "PS384",
	ALG_PS512: "PS512",
	ALG_RS256: "RS256",
	ALG_RS384: "RS384",
	ALG_RS512: "RS512",
}

func (a Algorithm) String() string {
	name, ok := algorithmNames[a]
	if !ok {
		return fmt.Sprintf("alg(%d)", int(a))
	}

	return name
}

func (a Algorithm) Known() bool {
	_, ok := algorithmNames[a]
	return ok
}

func (a Algorithm) IsECDSA() bool {
	return a == ALG_ES256 || a == ALG_ES384 || a == ALG_ES512
}

func (a Algorithm) IsRSAPSS() bool {
	return a == ALG_PS256 || a == ALG_PS384 || a == ALG_PS512
}

func (a Algorithm) IsRSAPKCS1() bool {
	return a == ALG_RS256 || a == ALG_RS384 || a == ALG_RS512
}

func (a Algorithm) IsRSA() bool {
	return a.IsRSAPSS() || a.IsRSAPKCS1()
}

func (a Algorithm) Hash() crypto.Hash {
	switch a {
	case ALG_ES384, ALG_PS384, ALG_RS384:
		return crypto.SHA384
	case ALG_ES512, ALG_PS512, ALG_RS512:
		return crypto.SHA512
	default:
		return crypto.SHA256
	}
}

// KeyAlgorithm describes the algorithm a trust store key is declared for, using
// the WebCrypto import parameter names found in published signer lists.
type KeyAlgorithm struct {
	Name       string   `json:"name"`
	NamedCurve string   `json:"namedCurve,omitempty"`
	Hash       HashName `json:"hash,omitempty"`
}

// HashName accepts both "SHA-256" and {"name": "SHA-256"}
type HashName string

func (h *HashName) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if strings.HasPrefix(s, "{") {
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*h = HashName(obj.Name)
		return nil
	}

	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*h = HashName(name)

	return nil
}

// Algorithm maps the declared key algorithm to a COSE algorithm
func (ka KeyAlgorithm) Algorithm() (Algorithm, error) {
	hashBits := 256
	switch strings.ToUpper(strings.TrimSpace(string(ka.Hash))) {
	case "", "SHA-256":
	case "SHA-384":
		hashBits = 384
	case "SHA-512":
		hashBits = 512
	default:
		return 0, errors.Errorf("Unsupported hash algorithm %s", ka.Hash)
	}

	switch strings.ToUpper(ka.Name) {
	case "ECDSA", "EC":
		switch strings.ToUpper(ka.NamedCurve) {
		case "", "P-256":
			return ALG_ES256, nil
		case "P-384":
			return ALG_ES384, nil
		case "P-521":
			return ALG_ES512, nil
		}
		return 0, errors.Errorf("Unsupported curve %s", ka.NamedCurve)
	case "RSA-PSS":
		return map[int]Algorithm{256: ALG_PS256, 384: ALG_PS384, 512: ALG_PS512}[hashBits], nil
	case "RSASSA-PKCS1-V1_5", "RSA":
		return map[int]Algorithm{256: ALG_RS256, 384: ALG_RS384, 512: ALG_RS512}[hashBits], nil
	}

	return 0, errors.Errorf("Unsupported key algorithm %s", ka.Name)
}
