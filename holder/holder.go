// Package holder reads a DGC without checking who signed it, for inspection
// of codes that fail verification.
package holder

import (
	"encoding/base64"

	"github.com/sanipasse/passcheck/common"
	"github.com/sanipasse/passcheck/trust"
)

type Holder struct {
}

func New() *Holder {
	return &Holder{}
}

// Inspection is the unverified content of a DGC
type Inspection struct {
	KID          string                    `json:"kid,omitempty"`
	Algorithm    string                    `json:"alg"`
	SchemaErrors []string                  `json:"schemaErrors,omitempty"`
	HCert        *common.HealthCertificate `json:"healthCertificate"`
	Document     map[string]interface{}    `json:"document"`
}

func (h *Holder) ReadQREncoded(proofPrefixed []byte) (*Inspection, error) {
	cwt, err := common.UnmarshalQREncoded(proofPrefixed)
	if err != nil {
		return nil, err
	}

	protectedHeader, err := common.ReadProtectedHeader(cwt.Protected)
	if err != nil {
		return nil, err
	}

	hcert, err := common.ReadCWT(cwt)
	if err != nil {
		return nil, err
	}

	doc, err := common.ReadDCCDocument(hcert.RawDCC)
	if err != nil {
		return nil, err
	}

	inspection := &Inspection{
		Algorithm: trust.Algorithm(protectedHeader.Alg).String(),
		HCert:     hcert,
		Document:  doc,
	}

	// A missing key identifier is worth showing, not failing on
	kid, err := common.FindKID(protectedHeader, &cwt.Unprotected)
	if err == nil {
		inspection.KID = base64.StdEncoding.EncodeToString(kid)
	}

	err = common.ValidateDCC(doc)
	if de, ok := common.AsDecodeError(err); ok {
		inspection.SchemaErrors = append([]string{de.Reason}, de.Details...)
	}

	return inspection, nil
}
