package cmd

import (
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-errors/errors"
	"github.com/sanipasse/passcheck/common"
	"github.com/sanipasse/passcheck/i18n"
	"github.com/sanipasse/passcheck/rules"
	"github.com/sanipasse/passcheck/scan"
	"github.com/sanipasse/passcheck/trust"
	"github.com/sanipasse/passcheck/verifier"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func setScannerFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.String("config", "", "path to configuration file (JSON, TOML, YAML or INI)")
	flags.String("trust-store-path", "", "path to trust store JSON file; bundled 2D-Doc keys are always trusted")
	flags.String("blacklist-path", "", "path to JSON array of revoked certificate fingerprints")
	flags.String("policy-path", "", "path to validity policy tables (JSON, YAML or TOML), replacing the bundled ones")
	flags.String("policy", rules.DefaultPolicyName, "validity policy to apply")
	flags.String("language", "fr", "language of messages (fr or en)")
	flags.String("timezone", "Europe/Paris", "time zone of 2D-Doc dates")
	flags.StringSlice("quirks", nil, "known issuer mistakes, as COUNTRY:YYYY-MM-DD (issued before that date)")
}

func configureScanner(cmd *cobra.Command) (*scan.Scanner, error) {
	err := viper.BindPFlags(cmd.Flags())
	if err != nil {
		return nil, err
	}

	err = readConfig()
	if err != nil {
		return nil, err
	}

	store, err := trust.Default()
	if err != nil {
		return nil, err
	}

	if path := viper.GetString("trust-store-path"); path != "" {
		loaded, err := trust.LoadFile(path)
		if err != nil {
			return nil, err
		}
		store.Merge(loaded)
	}

	config := &scan.Config{
		Trust:    store,
		Language: i18n.Parse(viper.GetString("language")),
	}

	if path := viper.GetString("blacklist-path"); path != "" {
		config.Blacklist, err = rules.LoadBlacklistFile(path)
		if err != nil {
			return nil, err
		}
	}

	if path := viper.GetString("policy-path"); path != "" {
		config.Policies, err = rules.LoadPoliciesFile(path)
		if err != nil {
			return nil, err
		}
	}

	if tz := viper.GetString("timezone"); tz != "" {
		config.Location, err = time.LoadLocation(tz)
		if err != nil {
			return nil, errors.WrapPrefix(err, "Could not load time zone "+tz, 0)
		}
	}

	config.Quirks, err = parseQuirks(viper.GetStringSlice("quirks"))
	if err != nil {
		return nil, err
	}

	return scan.New(config)
}

func parseQuirks(entries []string) ([]verifier.Quirk, error) {
	quirks := make([]verifier.Quirk, 0, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			return nil, errors.Errorf("Could not parse quirk %s, expected COUNTRY:DATE", entry)
		}

		issuedBefore, err := common.ParseDate(parts[1])
		if err != nil {
			return nil, errors.WrapPrefix(err, "Could not parse quirk date "+parts[1], 0)
		}

		quirks = append(quirks, verifier.Quirk{
			Country:      strings.ToUpper(strings.TrimSpace(parts[0])),
			IssuedBefore: issuedBefore,
		})
	}

	return quirks, nil
}
