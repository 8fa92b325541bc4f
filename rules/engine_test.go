package rules

import (
	"testing"
	"time"

	"github.com/sanipasse/passcheck/certinfo"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func testPolicy() *Policy {
	return &Policy{
		Name:                           "test",
		TestNegativePcrEndHour:         72,
		TestNegativeAntigenicEndHour:   48,
		TestPositivePcrStartDay:        11,
		TestPositivePcrEndDay:          180,
		TestPositiveAntigenicStartDay:  15,
		TestPositiveAntigenicEndDay:    120,
		VaccineDelay:                   7,
		VaccineDelayMax:                210,
		VaccineDelayJanssen:            28,
		VaccineDelayMaxJanssen:         60,
		VaccineBoosterAge:              18,
		VaccineBoosterUnderAgeLead:     7,
		VaccineBoosterDelay:            7,
		VaccineBoosterDelayUnderAge:    14,
		VaccineBoosterDelayNew:         1,
		VaccineBoosterDelayUnderAgeNew: 2,
		VaccineBoosterToggleDate:       "2022-01-15",
		VaccineBoosterDelayMax:         3650,
		SingleDoseProducts:             []string{"EU/1/20/1525"},
		PcrTests:                       []string{"943092", "945006", "948455", "LP6464-4"},
		AntigenicTests:                 []string{"945584", "LP217198-3"},
	}
}

var (
	testDate = time.Date(2021, 6, 1, 10, 30, 0, 0, time.UTC)
	adultDOB = time.Date(1970, 3, 1, 0, 0, 0, 0, time.UTC)
)

func testInfo(testType string, negative, inconclusive bool) *certinfo.CommonCertificateInfo {
	return &certinfo.CommonCertificateInfo{
		Type:        certinfo.TypeTest,
		DateOfBirth: adultDOB,
		Fingerprint: "abc123",
		Test: &certinfo.Test{
			TestDate:       testDate,
			TestType:       testType,
			IsNegative:     negative,
			IsInconclusive: inconclusive,
		},
	}
}

func vaccinationInfo(product string, received, expected int, date, dob time.Time) *certinfo.CommonCertificateInfo {
	return &certinfo.CommonCertificateInfo{
		Type:        certinfo.TypeVaccination,
		DateOfBirth: dob,
		Vaccination: &certinfo.Vaccination{
			VaccinationDate:   date,
			ProphylacticAgent: product,
			Product:           product,
			DosesReceived:     received,
			DosesExpected:     expected,
			DosesExpectedRaw:  expected,
		},
	}
}

func evaluate(t *testing.T, e *Engine, info *certinfo.CommonCertificateInfo, p *Policy, target time.Time) *Verdict {
	verdict, err := e.Evaluate(info, p, target)
	require.NoError(t, err)
	return verdict
}

func TestNegativePCRBoundary(t *testing.T) {
	e := NewEngine(nil, language.French)
	info := testInfo("945006", true, false)
	end := testDate.Add(72 * time.Hour)

	verdict := evaluate(t, e, info, testPolicy(), testDate.Add(time.Hour))
	require.True(t, verdict.Accepted)
	require.Equal(t, ReasonValid, verdict.Reason)

	verdict = evaluate(t, e, info, testPolicy(), end)
	require.True(t, verdict.Accepted)
	require.Equal(t, &ValidityPeriod{Start: testDate, End: end}, verdict.Period)

	verdict = evaluate(t, e, info, testPolicy(), end.Add(time.Second))
	require.False(t, verdict.Accepted)
	require.Equal(t, ReasonExpired, verdict.Reason)
	require.Contains(t, verdict.Message, "04/06/2021 10:30")

	verdict = evaluate(t, e, info, testPolicy(), testDate.Add(-time.Second))
	require.Equal(t, ReasonNotYetValid, verdict.Reason)
}

func TestNegativeAntigenic(t *testing.T) {
	e := NewEngine(nil, language.English)
	info := testInfo("LP217198-3", true, false)

	verdict := evaluate(t, e, info, testPolicy(), testDate.Add(49*time.Hour))
	require.Equal(t, ReasonExpired, verdict.Reason)
	require.Equal(t, "This certificate expired on 2021-06-03 10:30", verdict.Message)
}

func TestPositiveTestWindow(t *testing.T) {
	e := NewEngine(nil, language.French)
	info := testInfo("945006", false, false)

	require.Equal(t, ReasonNotYetValid, evaluate(t, e, info, testPolicy(), testDate.AddDate(0, 0, 10)).Reason)
	require.True(t, evaluate(t, e, info, testPolicy(), testDate.AddDate(0, 0, 11)).Accepted)
	require.True(t, evaluate(t, e, info, testPolicy(), testDate.AddDate(0, 0, 180)).Accepted)
	require.Equal(t, ReasonExpired, evaluate(t, e, info, testPolicy(), testDate.AddDate(0, 0, 181)).Reason)

	antigenic := testInfo("945584", false, false)
	require.Equal(t, ReasonNotYetValid, evaluate(t, e, antigenic, testPolicy(), testDate.AddDate(0, 0, 14)).Reason)
}

func TestRecoveryCountsAsPositivePCR(t *testing.T) {
	info := testInfo(certinfo.RecoveryTestType, false, false)
	info.Test.IsRecovery = true

	verdict := evaluate(t, NewEngine(nil, language.French), info, testPolicy(), testDate.AddDate(0, 1, 0))
	require.True(t, verdict.Accepted)
}

func TestTestRejections(t *testing.T) {
	e := NewEngine(nil, language.English)

	verdict := evaluate(t, e, testInfo("123456", true, false), testPolicy(), testDate)
	require.Equal(t, ReasonUnknownTestType, verdict.Reason)
	require.Equal(t, "Unknown test type: 123456", verdict.Message)
	require.Nil(t, verdict.Period)

	verdict = evaluate(t, e, testInfo("945006", false, true), testPolicy(), testDate)
	require.Equal(t, ReasonInconclusive, verdict.Reason)
}

func TestNegativeTestAgeCap(t *testing.T) {
	e := NewEngine(nil, language.French)
	p := testPolicy()
	p.TestNegativeMaxAgeYears = 12

	// Turns 12 one day after the test: the window is cut short
	info := testInfo("945006", true, false)
	info.DateOfBirth = testDate.AddDate(0, 0, 1).Add(-time.Duration(12 * 365.25 * 24 * float64(time.Hour)))

	verdict := evaluate(t, e, info, p, testDate)
	require.True(t, verdict.Accepted)
	require.Equal(t, testDate.AddDate(0, 0, 1), verdict.Period.End)

	// Already too old when tested
	info.DateOfBirth = adultDOB
	verdict = evaluate(t, e, info, p, testDate)
	require.Equal(t, ReasonNoLongerAccepted, verdict.Reason)
}

func TestBlacklistShortCircuits(t *testing.T) {
	e := NewEngine(NewBlacklist([]string{"ABC123"}), language.French)

	// Even an unknown test type is reported as revoked
	verdict := evaluate(t, e, testInfo("unknown", true, false), testPolicy(), testDate)
	require.False(t, verdict.Accepted)
	require.Equal(t, ReasonRevoked, verdict.Reason)
	require.Nil(t, verdict.Period)

	// And so is an otherwise valid one, even with a broken policy
	broken := testPolicy()
	broken.VaccineDelay = -1
	verdict = evaluate(t, e, testInfo("945006", true, false), broken, testDate.Add(time.Hour))
	require.Equal(t, ReasonRevoked, verdict.Reason)
}

func TestIncompleteCycle(t *testing.T) {
	e := NewEngine(nil, language.English)
	vaccinated := time.Date(2021, 5, 1, 12, 0, 0, 0, time.UTC)

	info := vaccinationInfo("EU/1/20/1528", 1, 2, vaccinated, adultDOB)
	verdict := evaluate(t, e, info, testPolicy(), vaccinated.AddDate(0, 1, 0))
	require.Equal(t, ReasonIncompleteCycle, verdict.Reason)
	require.Equal(t, "Only 1 dose(s) received out of the 2 this vaccine requires", verdict.Message)

	// Marked as complete, the single dose is enough
	info.Vaccination.DosesExpected = 1
	info.Vaccination.CycleComplete = true
	verdict = evaluate(t, e, info, testPolicy(), vaccinated.AddDate(0, 1, 0))
	require.True(t, verdict.Accepted)
	require.Equal(t, vaccinated.AddDate(0, 0, 7), verdict.Period.Start)

	// Unless the policy only trusts the printed count
	p := testPolicy()
	p.IgnoreCycleCompleteMarker = true
	verdict = evaluate(t, e, info, p, vaccinated.AddDate(0, 1, 0))
	require.Equal(t, ReasonIncompleteCycle, verdict.Reason)
}

func TestJanssen(t *testing.T) {
	e := NewEngine(nil, language.French)
	vaccinated := time.Date(2021, 5, 1, 12, 0, 0, 0, time.UTC)

	for _, expected := range []int{1, 2} {
		info := vaccinationInfo(" eu/1/20/1525 ", expected, expected, vaccinated, adultDOB)

		period, rejection, err := e.ValidityInterval(info, testPolicy())
		require.NoError(t, err)
		require.Nil(t, rejection)
		require.Equal(t, vaccinated.AddDate(0, 0, 28), period.Start)
		require.Equal(t, vaccinated.AddDate(0, 0, 60), period.End)
	}

	// 2D-Doc names the product in full, its prophylactic agent is the shared ATC class
	p := testPolicy()
	p.SingleDoseProducts = append(p.SingleDoseProducts, "COVID-19 VACCINE JANSSEN")
	info := vaccinationInfo("J07BX03", 1, 1, vaccinated, adultDOB)
	info.Vaccination.Product = "COVID-19 VACCINE JANSSEN"

	period, _, err := e.ValidityInterval(info, p)
	require.NoError(t, err)
	require.Equal(t, vaccinated.AddDate(0, 0, 28), period.Start)

	// The ATC class alone does not make a product single dose
	p.SingleDoseProducts = append(p.SingleDoseProducts, "J07BX03")
	info.Vaccination.Product = "COMIRNATY"
	period, _, err = e.ValidityInterval(info, p)
	require.NoError(t, err)
	require.Equal(t, vaccinated.AddDate(0, 0, 7), period.Start)
}

func TestPrimarySeries(t *testing.T) {
	e := NewEngine(nil, language.French)
	vaccinated := time.Date(2021, 5, 1, 12, 0, 0, 0, time.UTC)

	period, _, err := e.ValidityInterval(vaccinationInfo("EU/1/20/1528", 2, 2, vaccinated, adultDOB), testPolicy())
	require.NoError(t, err)
	require.Equal(t, vaccinated.AddDate(0, 0, 7), period.Start)
	require.Equal(t, vaccinated.AddDate(0, 0, 210), period.End)

	// A teenager stays valid until the booster age
	teenDOB := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	period, _, err = e.ValidityInterval(vaccinationInfo("EU/1/20/1528", 2, 2, vaccinated, teenDOB), testPolicy())
	require.NoError(t, err)
	require.Equal(t, addYears(teenDOB, 18), period.End)
}

func TestBoosterDelays(t *testing.T) {
	e := NewEngine(nil, language.French)
	teenDOB := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		dob       time.Time
		date      time.Time
		delayDays float64
	}{
		{"adult before toggle", adultDOB, time.Date(2021, 12, 1, 12, 0, 0, 0, time.UTC), 7},
		{"under age before toggle", teenDOB, time.Date(2021, 12, 1, 12, 0, 0, 0, time.UTC), 14},
		{"adult after toggle", adultDOB, time.Date(2022, 1, 15, 12, 0, 0, 0, time.UTC), 1},
		{"under age after toggle", teenDOB, time.Date(2022, 2, 1, 12, 0, 0, 0, time.UTC), 2},
	}

	for _, c := range cases {
		period, rejection, err := e.ValidityInterval(vaccinationInfo("EU/1/20/1528", 3, 3, c.date, c.dob), testPolicy())
		require.NoError(t, err, c.name)
		require.Nil(t, rejection, c.name)
		require.Equal(t, addDays(c.date, c.delayDays), period.Start, c.name)
		require.Equal(t, addDays(c.date, 3650), period.End, c.name)
	}

	// Without a toggle date the old delays always apply
	p := testPolicy()
	p.VaccineBoosterToggleDate = ""
	date := time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC)
	period, _, err := e.ValidityInterval(vaccinationInfo("EU/1/20/1528", 3, 3, date, adultDOB), p)
	require.NoError(t, err)
	require.Equal(t, date.AddDate(0, 0, 7), period.Start)
}

func TestMalformedPolicyIsAnError(t *testing.T) {
	p := testPolicy()
	p.VaccineBoosterToggleDate = "soon"

	_, err := NewEngine(nil, language.French).Evaluate(testInfo("945006", true, false), p, testDate)
	require.Error(t, err)
}

func TestEvaluateDefaultsToNow(t *testing.T) {
	e := NewEngine(nil, language.French)
	e.now = func() time.Time { return testDate.Add(time.Hour) }

	verdict := evaluate(t, e, testInfo("945006", true, false), testPolicy(), time.Time{})
	require.True(t, verdict.Accepted)
}
