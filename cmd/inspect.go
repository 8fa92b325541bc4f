package cmd

import (
	"github.com/sanipasse/passcheck/holder"
	"github.com/sanipasse/passcheck/scan"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [code]",
	Short: "Decode a DGC without verifying its signature",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		code, err := readCode(args)
		if err != nil {
			exitWithError(err)
		}

		inspection, err := holder.New().ReadQREncoded([]byte(scan.ExtractCode(code)))
		if err != nil {
			exitWithError(err)
		}

		err = printJSON(inspection)
		if err != nil {
			exitWithError(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
