// Package i18n holds the message catalog used for user facing explanations.
// Keys are the English messages; French is the default language.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var Default = language.French

const (
	MsgFormat                   = "Invalid certificate format: %s"
	MsgUnknownSigner            = "This certificate was signed by an unrecognized entity (%s); it may be counterfeit"
	MsgInvalidSignerCertificate = "The signing certificate is invalid or expired: %s"
	MsgSignature                = "Invalid signature; this certificate may be counterfeit"
	MsgIssuedInFuture           = "This certificate has a signing date of %s but the current date is %s"
	MsgExpiredSignature         = "This certificate has a valid signature but expired on %s while the current date is %s"
	MsgUnsupported              = "Unsupported or empty certificate"

	MsgRevoked          = "This certificate has been revoked"
	MsgUnknownTestType  = "Unknown test type: %s"
	MsgInconclusive     = "Inconclusive test"
	MsgNoLongerAccepted = "Tests are no longer accepted for this person since %s"
	MsgIncompleteCycle  = "Only %d dose(s) received out of the %d this vaccine requires"
	MsgNotYetValid      = "This certificate will only be valid from %s"
	MsgExpired          = "This certificate expired on %s"
	MsgValid            = "Valid certificate until %s"
)

var french = map[string]string{
	MsgFormat:                   "Format de certificat invalide : %s",
	MsgUnknownSigner:            "Certificat signé par une entité non reconnue (%s) ; ce certificat est peut-être contrefait",
	MsgInvalidSignerCertificate: "Certificat de signature invalide ou périmé : %s",
	MsgSignature:                "Signature invalide ; ce certificat est peut-être contrefait",
	MsgIssuedInFuture:           "Ce certificat contient une date de signature fixée au %s mais la date actuelle est %s",
	MsgExpiredSignature:         "Ce certificat a une signature valide, mais contient une date d'expiration fixée au %s alors que nous sommes actuellement le %s",
	MsgUnsupported:              "Certificat vide ou non supporté",

	MsgRevoked:          "Ce certificat a été révoqué",
	MsgUnknownTestType:  "Type de test inconnu : %s",
	MsgInconclusive:     "Test non conclusif",
	MsgNoLongerAccepted: "Les tests ne sont plus acceptés pour cette personne depuis le %s",
	MsgIncompleteCycle:  "Vous n'avez reçu que %d dose(s) sur les %d que ce vaccin demande",
	MsgNotYetValid:      "Ce certificat ne sera valide qu'à partir du %s",
	MsgExpired:          "Ce certificat a expiré le %s",
	MsgValid:            "Certificat valide jusqu'au %s",
}

var builder = newBuilder()

func newBuilder() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(Default))
	for key, translation := range french {
		// Register English explicitly, otherwise the matcher would resolve it to French
		_ = b.SetString(language.English, key, key)
		_ = b.SetString(language.French, key, translation)
	}

	return b
}

// Printer returns a printer for the given language backed by the catalog.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(builder))
}

// Parse maps a configured language name to a tag, defaulting to French.
func Parse(lang string) language.Tag {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return Default
	}

	tag, err := language.Parse(lang)
	if err != nil {
		return Default
	}

	return tag
}

// FormatDate renders a date the way verdict messages display it.
func FormatDate(tag language.Tag, t interface{ Format(string) string }) string {
	base, _ := tag.Base()
	if base.String() == "en" {
		return t.Format("2006-01-02 15:04")
	}

	return t.Format("02/01/2006 15:04")
}
