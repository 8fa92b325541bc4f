package common

import (
	"net/url"
	"strings"
)

// ExtractCodeFromLink returns the code wrapped in a deep link (either in the v query
// parameter or in the fragment), or the trimmed input when it is not a link.
func ExtractCodeFromLink(doc string) string {
	doc = strings.TrimSpace(doc)

	u, err := url.Parse(doc)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return doc
	}

	if v := u.Query().Get("v"); v != "" {
		return v
	}

	if u.Fragment != "" {
		return u.Fragment
	}

	return doc
}
