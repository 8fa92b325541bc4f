package twoddoc

// Labels shown to the person checking a document. Sources: the ANTS trust
// service list for authorities, certigna.fr for key identifiers.

var certificateAuthorities = map[string]string{
	"FR01": "AriadNEXT",
	"FR02": "LEX PERSONA",
	"FR03": "Dhimyotis",
	"FR04": "AriadNEXT",
	"FR05": "ANTS",
}

var publicKeyNames = map[string]string{
	"AHP1": "Assistance Publique Hopitaux de Paris (APHP)",
	"AHP2": "Assistance Publique Hopitaux de Paris (APHP)",
	"AV01": "Caisse Nationale d'Assurance Maladie (CNAM)",
	"AV02": "Caisse Nationale d'Assurance Maladie (CNAM)",
}

// Labels are the display names of a decoded document's codes
type Labels struct {
	CertificateAuthority string `json:"certificate_authority"`
	PublicKey            string `json:"public_key"`
	Sex                  string `json:"sex,omitempty"`
	AnalysisResult       string `json:"analysis_result,omitempty"`
}

func CertificateAuthority(certificateAuthorityID string) string {
	name, ok := certificateAuthorities[certificateAuthorityID]
	if !ok {
		return "Autorité inconnue"
	}

	return name
}

func PublicKeyName(publicKeyID string) string {
	name, ok := publicKeyNames[publicKeyID]
	if !ok {
		return "Certificat inconnu"
	}

	return name
}

func Sex(sex string) string {
	switch sex {
	case "M":
		return "Masculin"
	case "F":
		return "Féminin"
	default:
		return "Inconnu"
	}
}

// Analysis result codes of field F5
const (
	ResultPositive     = "P"
	ResultNegative     = "N"
	ResultNonCompliant = "X"
)

func AnalysisResult(analysisResult string) string {
	switch analysisResult {
	case ResultPositive:
		return "Positif"
	case ResultNegative:
		return "Négatif"
	case ResultNonCompliant:
		return "Prélèvement non conforme"
	default:
		return "Indéterminé"
	}
}
