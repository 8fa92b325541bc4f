// Package scan wires the decoders, the normalization and the rule engine into
// one request scoped pipeline.
package scan

import (
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/sanipasse/passcheck/certinfo"
	"github.com/sanipasse/passcheck/common"
	"github.com/sanipasse/passcheck/i18n"
	"github.com/sanipasse/passcheck/rules"
	"github.com/sanipasse/passcheck/trust"
	"github.com/sanipasse/passcheck/twoddoc"
	"github.com/sanipasse/passcheck/verifier"
	"golang.org/x/text/language"
)

// ExtractCode unwraps a deep link, returning the code it carries
func ExtractCode(raw string) string {
	return common.ExtractCodeFromLink(raw)
}

// Detect tells which decoder handles an unwrapped code
func Detect(code string) certinfo.Format {
	if strings.HasPrefix(code, common.DGC_PREFIX) {
		return certinfo.FormatDGC
	}

	return certinfo.FormatTwoDDoc
}

type Config struct {
	Trust     *trust.Store
	Policies  rules.Policies
	Blacklist *rules.Blacklist

	Language language.Tag

	// Location is the zone of 2D-Doc dates, which carry none
	Location *time.Location

	Now    func() time.Time
	Quirks []verifier.Quirk
}

// Scanner is safe for concurrent use: it only holds read-only configuration
type Scanner struct {
	twoDDoc  *twoddoc.Decoder
	dgc      *verifier.Verifier
	engine   *rules.Engine
	policies rules.Policies
	now      func() time.Time
}

type Result struct {
	Certificate *certinfo.CommonCertificateInfo `json:"certificate"`
	Verdict     *rules.Verdict                  `json:"verdict"`
}

func New(config *Config) (*Scanner, error) {
	cfg := *config

	if cfg.Trust == nil {
		store, err := trust.Default()
		if err != nil {
			return nil, err
		}
		cfg.Trust = store
	}

	if len(cfg.Policies) == 0 {
		policies, err := rules.DefaultPolicies()
		if err != nil {
			return nil, errors.WrapPrefix(err, "Could not load default policies", 0)
		}
		cfg.Policies = policies
	}

	if cfg.Language == language.Und {
		cfg.Language = i18n.Default
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Scanner{
		twoDDoc:  twoddoc.NewDecoder(cfg.Trust, cfg.Location),
		dgc:      verifier.New(cfg.Trust, verifier.WithClock(cfg.Now), verifier.WithQuirks(cfg.Quirks)),
		engine:   rules.NewEngine(cfg.Blacklist, cfg.Language),
		policies: cfg.Policies,
		now:      cfg.Now,
	}, nil
}

// Scan decodes, verifies and normalizes a scanned code
func (s *Scanner) Scan(raw string) (*certinfo.CommonCertificateInfo, error) {
	code := ExtractCode(raw)

	switch Detect(code) {
	case certinfo.FormatDGC:
		dgc, err := s.dgc.VerifyQREncoded([]byte(code))
		if err != nil {
			return nil, err
		}
		return certinfo.FromDGC(dgc)
	default:
		cert, err := s.twoDDoc.Decode(code)
		if err != nil {
			return nil, err
		}
		return certinfo.From2DDoc(cert)
	}
}

// Check scans a code and evaluates it against a named policy at target, or now
// when target is zero. Decode failures are returned as errors, rule rejections
// as verdicts.
func (s *Scanner) Check(raw, policyName string, target time.Time) (*Result, error) {
	policy, err := s.policies.Get(policyName)
	if err != nil {
		return nil, err
	}

	cert, err := s.Scan(raw)
	if err != nil {
		return nil, err
	}

	if target.IsZero() {
		target = s.now()
	}

	verdict, err := s.engine.Evaluate(cert, policy, target)
	if err != nil {
		return nil, err
	}

	return &Result{Certificate: cert, Verdict: verdict}, nil
}

func (s *Scanner) Policies() rules.Policies {
	return s.policies
}
