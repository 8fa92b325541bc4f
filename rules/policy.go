package rules

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/samber/lo"
	"github.com/sanipasse/passcheck/common"
	"github.com/spf13/viper"
)

//go:embed validity_data.json
var defaultPoliciesJSON []byte

const DefaultPolicyName = "health-pass"

// Policy holds the parameters of one validity policy variant. Durations are in
// hours or days as their names say, and may be fractional.
type Policy struct {
	Name string `mapstructure:"-" json:"name"`

	TestNegativePcrEndHour       float64 `mapstructure:"testNegativePcrEndHour" json:"testNegativePcrEndHour"`
	TestNegativeAntigenicEndHour float64 `mapstructure:"testNegativeAntigenicEndHour" json:"testNegativeAntigenicEndHour"`

	// TestNegativeMaxAgeYears stops accepting negative tests at that age. Zero disables it.
	TestNegativeMaxAgeYears float64 `mapstructure:"testNegativeMaxAgeYears" json:"testNegativeMaxAgeYears"`

	TestPositivePcrStartDay       float64 `mapstructure:"testPositivePcrStartDay" json:"testPositivePcrStartDay"`
	TestPositivePcrEndDay         float64 `mapstructure:"testPositivePcrEndDay" json:"testPositivePcrEndDay"`
	TestPositiveAntigenicStartDay float64 `mapstructure:"testPositiveAntigenicStartDay" json:"testPositiveAntigenicStartDay"`
	TestPositiveAntigenicEndDay   float64 `mapstructure:"testPositiveAntigenicEndDay" json:"testPositiveAntigenicEndDay"`

	VaccineDelay           float64 `mapstructure:"vaccineDelay" json:"vaccineDelay"`
	VaccineDelayMax        float64 `mapstructure:"vaccineDelayMax" json:"vaccineDelayMax"`
	VaccineDelayJanssen    float64 `mapstructure:"vaccineDelayJanssen" json:"vaccineDelayJanssen"`
	VaccineDelayMaxJanssen float64 `mapstructure:"vaccineDelayMaxJanssen" json:"vaccineDelayMaxJanssen"`

	VaccineBoosterAge              float64 `mapstructure:"vaccineBoosterAge" json:"vaccineBoosterAge"`
	VaccineBoosterUnderAgeLead     float64 `mapstructure:"vaccineBoosterUnderAgeLead" json:"vaccineBoosterUnderAgeLead"`
	VaccineBoosterDelay            float64 `mapstructure:"vaccineBoosterDelay" json:"vaccineBoosterDelay"`
	VaccineBoosterDelayUnderAge    float64 `mapstructure:"vaccineBoosterDelayUnderAge" json:"vaccineBoosterDelayUnderAge"`
	VaccineBoosterDelayNew         float64 `mapstructure:"vaccineBoosterDelayNew" json:"vaccineBoosterDelayNew"`
	VaccineBoosterDelayUnderAgeNew float64 `mapstructure:"vaccineBoosterDelayUnderAgeNew" json:"vaccineBoosterDelayUnderAgeNew"`
	VaccineBoosterToggleDate       string  `mapstructure:"vaccineBoosterToggleDate" json:"vaccineBoosterToggleDate"`
	VaccineBoosterDelayMax         float64 `mapstructure:"vaccineBoosterDelayMax" json:"vaccineBoosterDelayMax"`

	SingleDoseProducts []string `mapstructure:"singleDoseProducts" json:"singleDoseProducts"`
	PcrTests           []string `mapstructure:"pcrTests" json:"pcrTests"`
	AntigenicTests     []string `mapstructure:"antigenicTests" json:"antigenicTests"`

	// IgnoreCycleCompleteMarker uses the dose count printed on the certificate,
	// even when it is marked as a completed cycle
	IgnoreCycleCompleteMarker bool `mapstructure:"ignoreCycleCompleteMarker" json:"ignoreCycleCompleteMarker"`
}

// Validate reports malformed parameters. It is the only way evaluation fails.
func (p *Policy) Validate() error {
	durations := map[string]float64{
		"testNegativePcrEndHour":         p.TestNegativePcrEndHour,
		"testNegativeAntigenicEndHour":   p.TestNegativeAntigenicEndHour,
		"testNegativeMaxAgeYears":        p.TestNegativeMaxAgeYears,
		"testPositivePcrStartDay":        p.TestPositivePcrStartDay,
		"testPositivePcrEndDay":          p.TestPositivePcrEndDay,
		"testPositiveAntigenicStartDay":  p.TestPositiveAntigenicStartDay,
		"testPositiveAntigenicEndDay":    p.TestPositiveAntigenicEndDay,
		"vaccineDelay":                   p.VaccineDelay,
		"vaccineDelayMax":                p.VaccineDelayMax,
		"vaccineDelayJanssen":            p.VaccineDelayJanssen,
		"vaccineDelayMaxJanssen":         p.VaccineDelayMaxJanssen,
		"vaccineBoosterAge":              p.VaccineBoosterAge,
		"vaccineBoosterUnderAgeLead":     p.VaccineBoosterUnderAgeLead,
		"vaccineBoosterDelay":            p.VaccineBoosterDelay,
		"vaccineBoosterDelayUnderAge":    p.VaccineBoosterDelayUnderAge,
		"vaccineBoosterDelayNew":         p.VaccineBoosterDelayNew,
		"vaccineBoosterDelayUnderAgeNew": p.VaccineBoosterDelayUnderAgeNew,
		"vaccineBoosterDelayMax":         p.VaccineBoosterDelayMax,
	}

	keys := lo.Keys(durations)
	sort.Strings(keys)
	for _, key := range keys {
		if durations[key] < 0 {
			return errors.Errorf("Policy %s has a negative %s", p.Name, key)
		}
	}

	if p.TestPositivePcrEndDay < p.TestPositivePcrStartDay || p.TestPositiveAntigenicEndDay < p.TestPositiveAntigenicStartDay {
		return errors.Errorf("Policy %s has a positive test window ending before it starts", p.Name)
	}

	if len(p.PcrTests) == 0 && len(p.AntigenicTests) == 0 {
		return errors.Errorf("Policy %s accepts no test type", p.Name)
	}

	_, err := p.ToggleDate()
	if err != nil {
		return err
	}

	return nil
}

// ToggleDate is the date from which the new booster delays apply, or nil
func (p *Policy) ToggleDate() (*time.Time, error) {
	if strings.TrimSpace(p.VaccineBoosterToggleDate) == "" {
		return nil, nil
	}

	t, err := common.ParseDate(p.VaccineBoosterToggleDate)
	if err != nil {
		return nil, errors.WrapPrefix(err, fmt.Sprintf("Could not parse booster toggle date of policy %s", p.Name), 0)
	}

	return &t, nil
}

// Policies are the policy variants by name
type Policies map[string]*Policy

func (ps Policies) Get(name string) (*Policy, error) {
	if name == "" {
		name = DefaultPolicyName
	}

	p, ok := ps[strings.ToLower(name)]
	if !ok {
		return nil, errors.Errorf("Could not find policy %s", name)
	}

	return p, nil
}

func (ps Policies) Names() []string {
	names := lo.Keys(ps)
	sort.Strings(names)
	return names
}

// LoadPolicies reads policy tables in any format viper understands (json, yaml, toml, ...)
func LoadPolicies(r io.Reader, format string) (Policies, error) {
	v := viper.New()
	v.SetConfigType(format)

	err := v.ReadConfig(r)
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not read policies", 0)
	}

	var ps Policies
	err = v.Unmarshal(&ps)
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not unmarshal policies", 0)
	}

	if len(ps) == 0 {
		return nil, errors.Errorf("Could not find any policy")
	}

	for name, p := range ps {
		if p == nil {
			return nil, errors.Errorf("Policy %s is empty", name)
		}

		p.Name = name
		err = p.Validate()
		if err != nil {
			return nil, err
		}
	}

	return ps, nil
}

// LoadPoliciesFile reads policy tables, guessing the format from the extension
func LoadPoliciesFile(path string) (Policies, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapPrefix(err, fmt.Sprintf("Could not read policy file %s", path), 0)
	}

	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		format = "json"
	}

	return LoadPolicies(bytes.NewReader(data), format)
}

// DefaultPolicies returns the bundled health-pass and vaccine-pass tables
func DefaultPolicies() (Policies, error) {
	return LoadPolicies(bytes.NewReader(defaultPoliciesJSON), "json")
}
