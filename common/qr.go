package common

import (
	"bytes"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-errors/errors"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"github.com/minvws/base45-go/eubase45"
)

const (
	COSE_SIGN1_TAG     = 18
	CURRENT_CONTEXT_ID = '1'
	DGC_PREFIX         = "HC1:"
)

func MarshalQREncoded(signedCWT *CWT, compress bool) ([]byte, error) {
	// CBOR marshal
	proofCbor, err := cbor.Marshal(cbor.Tag{
		Number:  COSE_SIGN1_TAG,
		Content: signedCWT,
	})
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not CBOR serialize CWT", 0)
	}

	// Zlib compress, which is optional for the EU format
	proof := proofCbor
	if compress {
		var proofCompressed bytes.Buffer
		zw, err := zlib.NewWriterLevel(&proofCompressed, flate.BestCompression)
		if err != nil {
			return nil, errors.WrapPrefix(err, "Could not create zlib writer", 0)
		}

		_, err = zw.Write(proofCbor)
		if err != nil {
			return nil, errors.WrapPrefix(err, "Could not write to zlib writer", 0)
		}

		err = zw.Close()
		if err != nil {
			return nil, errors.WrapPrefix(err, "Could not close zlib writer", 0)
		}

		proof = proofCompressed.Bytes()
	}

	// EUBase45 encode proof
	proofEUBase45 := eubase45.EUBase45Encode(proof)

	// Prefix
	prefix := []byte{'H', 'C', CURRENT_CONTEXT_ID, ':'}
	prefixedProof := append(prefix, proofEUBase45...)

	return prefixedProof, nil
}

func UnmarshalQREncoded(proofPrefixed []byte) (cwt *CWT, err error) {
	// Extract context identifier
	contextId, proofEUBase45, err := extractContextId(proofPrefixed)
	if err != nil {
		return nil, err
	}

	if contextId != CURRENT_CONTEXT_ID {
		return nil, FormatError("Unrecognized QR context identifier")
	}

	// EUBase45 decode proof
	proof, err := eubase45.EUBase45Decode(proofEUBase45)
	if err != nil {
		return nil, FormatError("Could not EUBase45 decode QR", err.Error())
	}

	// About half of the codes in the wild skip compression
	proofCbor := Inflate(proof)

	// Unmarshal CWT
	err = cbor.Unmarshal(proofCbor, &cwt)
	if err != nil {
		return nil, FormatError("Could not CBOR unmarshal QR as COSE_Sign1", err.Error())
	}

	if cwt == nil {
		return nil, FormatError("QR does not contain a COSE_Sign1 structure")
	}

	return cwt, nil
}

// Inflate returns the zlib decompressed data, or data itself when it is not zlib compressed
func Inflate(data []byte) []byte {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return data
	}
	defer zr.Close()

	inflated, err := io.ReadAll(zr)
	if err != nil {
		return data
	}

	return inflated
}

func HasEUPrefix(bts []byte) bool {
	_, _, err := extractContextId(bts)
	return err == nil
}

func extractContextId(proofPrefixed []byte) (contextId byte, proofEUBase45 []byte, err error) {
	if len(proofPrefixed) < 4 {
		return 0x00, nil, FormatError("Could not process abnormally short QR")
	}

	if proofPrefixed[0] != 'H' || proofPrefixed[1] != 'C' || proofPrefixed[3] != ':' {
		return 0x00, nil, FormatError("QR is not prefixed as a EU Health Credential")
	}

	contextId = proofPrefixed[2]
	if !((contextId >= '0' && contextId <= '9') || (contextId >= 'A' && contextId <= 'Z')) {
		return 0x00, nil, FormatError("QR has invalid context id byte")
	}

	return contextId, proofPrefixed[4:], nil
}
