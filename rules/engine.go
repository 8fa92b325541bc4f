// Package rules decides whether a normalized certificate is valid at a given
// date under a validity policy.
package rules

import (
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/samber/lo"
	"github.com/sanipasse/passcheck/certinfo"
	"github.com/sanipasse/passcheck/i18n"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Reason string

const (
	ReasonValid            Reason = "valid"
	ReasonRevoked          Reason = "revoked"
	ReasonUnknownTestType  Reason = "unknown_test_type"
	ReasonInconclusive     Reason = "inconclusive"
	ReasonNoLongerAccepted Reason = "no_longer_accepted"
	ReasonIncompleteCycle  Reason = "incomplete_cycle"
	ReasonNotYetValid      Reason = "not_yet_valid"
	ReasonExpired          Reason = "expired"
)

// ValidityPeriod is the closed interval [Start, End] in which a certificate is
// accepted: a target equal to End is valid, any later one has expired.
type ValidityPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Verdict is the outcome of an evaluation. Rejections are verdicts, not errors.
type Verdict struct {
	Accepted bool            `json:"accepted"`
	Reason   Reason          `json:"reason"`
	Message  string          `json:"message"`
	Period   *ValidityPeriod `json:"period,omitempty"`
}

type Engine struct {
	blacklist *Blacklist
	lang      language.Tag
	printer   *message.Printer
	now       func() time.Time
}

func NewEngine(blacklist *Blacklist, lang language.Tag) *Engine {
	return &Engine{
		blacklist: blacklist,
		lang:      lang,
		printer:   i18n.Printer(lang),
		now:       time.Now,
	}
}

func (e *Engine) reject(reason Reason, msg string, args ...interface{}) *Verdict {
	return &Verdict{
		Reason:  reason,
		Message: e.printer.Sprintf(msg, args...),
	}
}

func (e *Engine) date(t time.Time) string {
	return i18n.FormatDate(e.lang, t)
}

// Evaluate checks cert against the policy at target, or now when target is zero.
// Only a malformed policy makes it fail.
func (e *Engine) Evaluate(cert *certinfo.CommonCertificateInfo, policy *Policy, target time.Time) (*Verdict, error) {
	if e.blacklist.Contains(cert.Fingerprint) {
		return e.reject(ReasonRevoked, i18n.MsgRevoked), nil
	}

	period, rejection, err := e.ValidityInterval(cert, policy)
	if err != nil {
		return nil, err
	}

	if rejection != nil {
		return rejection, nil
	}

	if target.IsZero() {
		target = e.now()
	}

	var verdict *Verdict
	switch {
	case target.Before(period.Start):
		verdict = e.reject(ReasonNotYetValid, i18n.MsgNotYetValid, e.date(period.Start))
	case target.After(period.End):
		verdict = e.reject(ReasonExpired, i18n.MsgExpired, e.date(period.End))
	default:
		verdict = &Verdict{
			Accepted: true,
			Reason:   ReasonValid,
			Message:  e.printer.Sprintf(i18n.MsgValid, e.date(period.End)),
		}
	}
	verdict.Period = period

	return verdict, nil
}

// ValidityInterval computes the validity period of cert. A certificate that can
// never be valid yields a rejection verdict instead.
func (e *Engine) ValidityInterval(cert *certinfo.CommonCertificateInfo, policy *Policy) (*ValidityPeriod, *Verdict, error) {
	err := policy.Validate()
	if err != nil {
		return nil, nil, err
	}

	switch {
	case cert.Type == certinfo.TypeTest && cert.Test != nil:
		period, rejection := e.testValidityInterval(cert, policy)
		return period, rejection, nil
	case cert.Type == certinfo.TypeVaccination && cert.Vaccination != nil:
		return e.vaccinationValidityInterval(cert, policy)
	}

	return nil, nil, errors.Errorf("Could not evaluate certificate of type %q without matching details", cert.Type)
}

func normalizeProduct(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func addHours(t time.Time, hours float64) time.Time {
	return t.Add(time.Duration(hours * float64(time.Hour)))
}

func addDays(t time.Time, days float64) time.Time {
	return addHours(t, days*24)
}

func addYears(t time.Time, years float64) time.Time {
	return addDays(t, years*365.25)
}

func (e *Engine) testValidityInterval(cert *certinfo.CommonCertificateInfo, p *Policy) (*ValidityPeriod, *Verdict) {
	test := cert.Test
	isPCR := lo.Contains(p.PcrTests, test.TestType)
	isAntigenic := lo.Contains(p.AntigenicTests, test.TestType)
	if !isPCR && !isAntigenic {
		return nil, e.reject(ReasonUnknownTestType, i18n.MsgUnknownTestType, test.TestType)
	}

	if test.IsInconclusive {
		return nil, e.reject(ReasonInconclusive, i18n.MsgInconclusive)
	}

	if test.IsNegative {
		hours := p.TestNegativeAntigenicEndHour
		if isPCR {
			hours = p.TestNegativePcrEndHour
		}

		start := test.TestDate
		end := addHours(start, hours)
		if p.TestNegativeMaxAgeYears > 0 && !cert.DateOfBirth.IsZero() {
			cutoff := addYears(cert.DateOfBirth, p.TestNegativeMaxAgeYears)
			if cutoff.Before(end) {
				end = cutoff
			}
			if end.Before(start) {
				return nil, e.reject(ReasonNoLongerAccepted, i18n.MsgNoLongerAccepted, e.date(cutoff))
			}
		}

		return &ValidityPeriod{Start: start, End: end}, nil
	}

	startDays, endDays := p.TestPositiveAntigenicStartDay, p.TestPositiveAntigenicEndDay
	if isPCR {
		startDays, endDays = p.TestPositivePcrStartDay, p.TestPositivePcrEndDay
	}

	return &ValidityPeriod{
		Start: addDays(test.TestDate, startDays),
		End:   addDays(test.TestDate, endDays),
	}, nil
}

func (e *Engine) vaccinationValidityInterval(cert *certinfo.CommonCertificateInfo, p *Policy) (*ValidityPeriod, *Verdict, error) {
	vac := cert.Vaccination

	expected := vac.DosesExpected
	if p.IgnoreCycleCompleteMarker {
		expected = vac.DosesExpectedRaw
	}

	if vac.DosesReceived < expected {
		return nil, e.reject(ReasonIncompleteCycle, i18n.MsgIncompleteCycle, vac.DosesReceived, expected), nil
	}

	date := vac.VaccinationDate
	product := normalizeProduct(vac.Product)
	isSingleDose := product != "" && lo.ContainsBy(p.SingleDoseProducts, func(sd string) bool {
		return normalizeProduct(sd) == product
	})
	if isSingleDose {
		return &ValidityPeriod{
			Start: addDays(date, p.VaccineDelayJanssen),
			End:   addDays(date, p.VaccineDelayMaxJanssen),
		}, nil, nil
	}

	// Date at which the person reaches (or reached) the booster age
	boosterDate := addYears(cert.DateOfBirth, p.VaccineBoosterAge)
	isUnderAge := addDays(date, p.VaccineBoosterUnderAgeLead).Before(boosterDate)

	isPrimary := expected <= 2
	startDays := p.VaccineDelay
	if !isPrimary {
		toggle, err := p.ToggleDate()
		if err != nil {
			return nil, nil, err
		}

		newRules := toggle != nil && !date.Before(*toggle)
		switch {
		case isUnderAge && newRules:
			startDays = p.VaccineBoosterDelayUnderAgeNew
		case isUnderAge:
			startDays = p.VaccineBoosterDelayUnderAge
		case newRules:
			startDays = p.VaccineBoosterDelayNew
		default:
			startDays = p.VaccineBoosterDelay
		}
	}

	maxDelay := p.VaccineDelayMax
	if !isPrimary {
		maxDelay = p.VaccineBoosterDelayMax
	}

	end := addDays(date, maxDelay)
	if end.Before(boosterDate) {
		end = boosterDate
	}

	return &ValidityPeriod{
		Start: addDays(date, startDays),
		End:   end,
	}, nil, nil
}
