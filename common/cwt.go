package common

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/go-errors/errors"
)

const COSE_SIGN1_CONTEXT = "Signature1"

// CWT claim keys, as registered for the EU health certificate
const (
	CLAIM_ISSUER     = 1
	CLAIM_EXPIRATION = 4
	CLAIM_ISSUED_AT  = 6
	CLAIM_HCERT      = -260
)

type CWT struct {
	_           struct{} `cbor:",toarray"`
	Protected   []byte
	Unprotected CWTHeader
	Payload     []byte
	Signature   []byte
}

type CWTHeader struct {
	// KID is a pointer to a byte slice, so the entire struct can be compared with an empty value
	KID *[]byte `cbor:"4,keyasint,omitempty"`
	Alg int     `cbor:"1,keyasint,omitempty"`
}

type CWTPayload struct {
	Issuer         string `cbor:"1,keyasint,omitempty"`
	ExpirationTime int64  `cbor:"4,keyasint,omitempty"`
	IssuedAt       int64  `cbor:"6,keyasint,omitempty"`

	HCert *RawHealthCertificate `cbor:"-260,keyasint,omitempty"`
}

type cwtPayloadWithFloatTimestamps struct {
	Issuer         string  `cbor:"1,keyasint"`
	ExpirationTime float64 `cbor:"4,keyasint"`
	IssuedAt       float64 `cbor:"6,keyasint"`

	HCert *RawHealthCertificate `cbor:"-260,keyasint"`
}

type RawHealthCertificate struct {
	// Halt unmarshalling here, so the DCC can be schema validated first
	DCC cbor.RawMessage `cbor:"1,keyasint"`
}

type HealthCertificate struct {
	CredentialVersion int    `json:"credentialVersion"`
	Issuer            string `json:"issuer"`
	IssuedAt          int64  `json:"issuedAt"`
	ExpirationTime    int64  `json:"expirationTime"`
	DCC               *DCC   `json:"dcc"`

	RawDCC cbor.RawMessage `json:"-"`
}

// ReadProtectedHeader decodes the protected header bucket, which may be a zero length byte string
func ReadProtectedHeader(protected []byte) (*CWTHeader, error) {
	header := &CWTHeader{}
	if len(protected) == 0 {
		return header, nil
	}

	err := cbor.Unmarshal(protected, header)
	if err != nil {
		return nil, FormatError("Could not CBOR unmarshal protected header", err.Error())
	}

	return header, nil
}

// FindKID determines the key identifier from the protected and unprotected header
func FindKID(protectedHeader *CWTHeader, unprotectedHeader *CWTHeader) (kid []byte, err error) {
	if protectedHeader.KID != nil {
		kid = *protectedHeader.KID
	} else if unprotectedHeader.KID != nil {
		kid = *unprotectedHeader.KID
	}

	if kid == nil {
		return nil, FormatError("Could not find key identifier in protected or unprotected header")
	}

	return kid, nil
}

// SigStructure builds the COSE Sig_structure for a single signer, which is what is actually signed
func SigStructure(protectedHeaderCbor, payloadCbor []byte) ([]byte, error) {
	// Nil byte slices would be serialized as CBOR null
	if protectedHeaderCbor == nil {
		protectedHeaderCbor = []byte{}
	}
	if payloadCbor == nil {
		payloadCbor = []byte{}
	}

	toBeSigned := []interface{}{
		COSE_SIGN1_CONTEXT,
		protectedHeaderCbor,
		[]byte{}, // external_aad
		payloadCbor,
	}

	serialized, err := cbor.Marshal(toBeSigned)
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not CBOR serialize Sig_structure", 0)
	}

	return serialized, nil
}

func ReadCWT(cwt *CWT) (hcert *HealthCertificate, err error) {
	// Unmarshal payload
	var payload *CWTPayload
	err = cbor.Unmarshal(cwt.Payload, &payload)
	if err != nil {
		// Try to parse the CWT with float timestamps, then put it back into the regular structure
		var altPayload *cwtPayloadWithFloatTimestamps
		altErr := cbor.Unmarshal(cwt.Payload, &altPayload)
		if altErr != nil || altPayload == nil {
			// Use the original error, as it is more likely to be of use
			return nil, FormatError("Could not CBOR unmarshal CWT payload", err.Error())
		}

		payload = &CWTPayload{
			Issuer:         altPayload.Issuer,
			ExpirationTime: int64(altPayload.ExpirationTime),
			IssuedAt:       int64(altPayload.IssuedAt),
			HCert:          altPayload.HCert,
		}
	}

	if payload == nil || payload.HCert == nil || payload.HCert.DCC == nil {
		return nil, FormatError("Could not process empty hcert or dcc structure")
	}

	// Read DCC itself
	dcc, err := ReadDCC(payload.HCert.DCC)
	if err != nil {
		return nil, err
	}

	// Insert CWT fields into top level structure
	return &HealthCertificate{
		CredentialVersion: 1,
		Issuer:            payload.Issuer,
		IssuedAt:          payload.IssuedAt,
		ExpirationTime:    payload.ExpirationTime,
		DCC:               dcc,
		RawDCC:            payload.HCert.DCC,
	}, nil
}
