package rules

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-errors/errors"
	"github.com/samber/lo"
)

// Blacklist is a static set of revoked certificate fingerprints
type Blacklist struct {
	fingerprints map[string]struct{}
}

func NewBlacklist(fingerprints []string) *Blacklist {
	return &Blacklist{
		fingerprints: lo.Associate(fingerprints, func(fp string) (string, struct{}) {
			return strings.ToLower(strings.TrimSpace(fp)), struct{}{}
		}),
	}
}

// LoadBlacklist reads a JSON array of hex fingerprints
func LoadBlacklist(r io.Reader) (*Blacklist, error) {
	var fingerprints []string
	err := json.NewDecoder(r).Decode(&fingerprints)
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not JSON unmarshal blacklist", 0)
	}

	return NewBlacklist(fingerprints), nil
}

func LoadBlacklistFile(path string) (*Blacklist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapPrefix(err, fmt.Sprintf("Could not open blacklist file %s", path), 0)
	}
	defer f.Close()

	return LoadBlacklist(f)
}

func (b *Blacklist) Contains(fingerprint string) bool {
	if b == nil {
		return false
	}

	_, ok := b.fingerprints[strings.ToLower(fingerprint)]
	return ok
}

func (b *Blacklist) Len() int {
	if b == nil {
		return 0
	}

	return len(b.fingerprints)
}
