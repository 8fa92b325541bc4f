package cmd

import (
	"time"

	"github.com/go-errors/errors"
	"github.com/sanipasse/passcheck/common"
	"github.com/sanipasse/passcheck/i18n"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [code]",
	Short: "Verify a scanned code and evaluate it against a validity policy",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := runVerify(cmd, args)
		if err != nil {
			exitWithError(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	setScannerFlags(verifyCmd)
	verifyCmd.Flags().String("target-date", "", "RFC 3339 date at which to evaluate validity (default now)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	scanner, err := configureScanner(cmd)
	if err != nil {
		return err
	}

	code, err := readCode(args)
	if err != nil {
		return err
	}

	var target time.Time
	if s := viper.GetString("target-date"); s != "" {
		target, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return errors.WrapPrefix(err, "Could not parse target date", 0)
		}
	}

	result, err := scanner.Check(code, viper.GetString("policy"), target)
	if err != nil {
		if de, ok := common.AsDecodeError(err); ok {
			return errors.New(de.Localize(i18n.Parse(viper.GetString("language"))))
		}
		return err
	}

	return printJSON(result)
}
