package common

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/sanipasse/passcheck/i18n"
	"golang.org/x/text/language"
)

// ErrorKind identifies the decoding stage that rejected a scanned code
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindFormat
	KindUnknownSigner
	KindInvalidSignerCertificate
	KindSignature
	KindIssuedInFuture
	KindExpired
	KindUnsupportedCertificate
)

var kindNames = map[ErrorKind]string{
	KindNone:                     "none",
	KindFormat:                   "format",
	KindUnknownSigner:            "unknown_signer",
	KindInvalidSignerCertificate: "invalid_signer_certificate",
	KindSignature:                "signature",
	KindIssuedInFuture:           "issued_in_future",
	KindExpired:                  "expired",
	KindUnsupportedCertificate:   "unsupported_certificate",
}

func (k ErrorKind) String() string {
	name, ok := kindNames[k]
	if !ok {
		return fmt.Sprintf("kind(%d)", int(k))
	}

	return name
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// DecodeError is the structured failure of a decode-and-verify pipeline. It is
// terminal for the scanned code: nothing in this module retries it.
type DecodeError struct {
	Kind   ErrorKind
	Reason string

	// Details holds validator diagnostics, one entry per violated constraint
	Details []string

	// KeyID is set for signer related failures
	KeyID string

	// Signer describes the signing certificate for InvalidSignerCertificate
	Signer string

	// At is the offending claim (issued-at or expiration), Now the clock value it was compared to
	At  time.Time
	Now time.Time
}

func (e *DecodeError) Error() string {
	msg := e.Kind.String() + ": " + e.Reason
	if len(e.Details) > 0 {
		msg += ": " + strings.Join(e.Details, "; ")
	}

	return msg
}

// Localize renders the user facing explanation for this error
func (e *DecodeError) Localize(tag language.Tag) string {
	p := i18n.Printer(tag)

	switch e.Kind {
	case KindFormat:
		reason := e.Reason
		if len(e.Details) > 0 {
			reason += "\n" + strings.Join(e.Details, "\n")
		}
		return p.Sprintf(i18n.MsgFormat, reason)
	case KindUnknownSigner:
		return p.Sprintf(i18n.MsgUnknownSigner, e.KeyID)
	case KindInvalidSignerCertificate:
		return p.Sprintf(i18n.MsgInvalidSignerCertificate, e.Signer)
	case KindSignature:
		return p.Sprintf(i18n.MsgSignature)
	case KindIssuedInFuture:
		return p.Sprintf(i18n.MsgIssuedInFuture, i18n.FormatDate(tag, e.At), i18n.FormatDate(tag, e.Now))
	case KindExpired:
		return p.Sprintf(i18n.MsgExpiredSignature, i18n.FormatDate(tag, e.At), i18n.FormatDate(tag, e.Now))
	case KindUnsupportedCertificate:
		return p.Sprintf(i18n.MsgUnsupported)
	}

	return e.Error()
}

func newDecodeError(e *DecodeError) *errors.Error {
	return errors.Wrap(e, 2)
}

func FormatError(reason string, details ...string) error {
	return newDecodeError(&DecodeError{Kind: KindFormat, Reason: reason, Details: details})
}

func FormatErrorf(format string, args ...interface{}) error {
	return newDecodeError(&DecodeError{Kind: KindFormat, Reason: fmt.Sprintf(format, args...)})
}

func UnknownSignerError(keyID string) error {
	return newDecodeError(&DecodeError{
		Kind:   KindUnknownSigner,
		Reason: fmt.Sprintf("Could not find signer for key id %s", keyID),
		KeyID:  keyID,
	})
}

func InvalidSignerCertificateError(keyID, signer, reason string) error {
	return newDecodeError(&DecodeError{
		Kind:   KindInvalidSignerCertificate,
		Reason: reason,
		KeyID:  keyID,
		Signer: signer,
	})
}

func SignatureError(keyID string, cause error) error {
	reason := "Signature does not verify"
	if cause != nil {
		reason = cause.Error()
	}

	return newDecodeError(&DecodeError{Kind: KindSignature, Reason: reason, KeyID: keyID})
}

func IssuedInFutureError(issuedAt, now time.Time) error {
	return newDecodeError(&DecodeError{
		Kind:   KindIssuedInFuture,
		Reason: fmt.Sprintf("Issued at %s, which is after %s", issuedAt.Format(time.RFC3339), now.Format(time.RFC3339)),
		At:     issuedAt,
		Now:    now,
	})
}

func ExpiredError(expiresAt, now time.Time) error {
	return newDecodeError(&DecodeError{
		Kind:   KindExpired,
		Reason: fmt.Sprintf("Expired at %s, which is before %s", expiresAt.Format(time.RFC3339), now.Format(time.RFC3339)),
		At:     expiresAt,
		Now:    now,
	})
}

func UnsupportedCertificateError(reason string) error {
	return newDecodeError(&DecodeError{Kind: KindUnsupportedCertificate, Reason: reason})
}

// AsDecodeError finds the DecodeError in a chain of wrapped errors
func AsDecodeError(err error) (*DecodeError, bool) {
	for err != nil {
		switch e := err.(type) {
		case *DecodeError:
			return e, true
		case *errors.Error:
			err = e.Err
		default:
			err = stderrors.Unwrap(err)
		}
	}

	return nil, false
}

// KindOf returns the decode stage of err, or KindNone for any other error
func KindOf(err error) ErrorKind {
	de, ok := AsDecodeError(err)
	if !ok {
		return KindNone
	}

	return de.Kind
}
