package certinfo

import (
	"strings"
	"time"
)

const localizedDateLayout = "02.01.2006"

// ApplyQuirkCorrection returns a copy with the names and date of birth read the
// way a known-faulty issuer meant them. The receiver is left untouched, and the
// correction is for display only.
func (c *CommonCertificateInfo) ApplyQuirkCorrection() *CommonCertificateInfo {
	corrected := *c
	if c.Source.DGC == nil || c.Source.DGC.HCert == nil || !c.Quirks.Any() {
		return &corrected
	}

	h := c.Source.DGC.HCert
	if c.Quirks.NamesMaybeSwapped && h.Name != nil {
		if name := transliterationFixed(h.Name.GivenName, h.Name.StandardizedGivenName); name != "" {
			corrected.FirstName = name
		}
		if name := transliterationFixed(h.Name.FamilyName, h.Name.StandardizedFamilyName); name != "" {
			corrected.LastName = name
		}
	}

	if c.Quirks.DateOfBirthMaybeLocalized {
		if dob, err := time.Parse(localizedDateLayout, strings.TrimSpace(h.DateOfBirth)); err == nil {
			corrected.DateOfBirth = dob
		}
	}

	return &corrected
}

// transliterationFixed returns the name from the other field when the plain one
// holds the machine readable form
func transliterationFixed(plain, standardized string) string {
	if !strings.Contains(plain, "<") || standardized == "" {
		return ""
	}

	return standardized
}
