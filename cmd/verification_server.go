package cmd

import (
	"github.com/sanipasse/passcheck/i18n"
	"github.com/sanipasse/passcheck/verifier/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serverCmd = &cobra.Command{
	Use:   "verification-server",
	Short: "Serve credential verification over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		scanner, err := configureScanner(cmd)
		if err != nil {
			exitWithError(err)
		}

		logger, err := newLogger(viper.GetString("log-level"))
		if err != nil {
			exitWithError(err)
		}
		defer func() { _ = logger.Sync() }()

		config := &server.Configuration{
			ListenAddress: viper.GetString("listen-address"),
			ListenPort:    viper.GetString("listen-port"),
			DefaultPolicy: viper.GetString("policy"),
			Language:      i18n.Parse(viper.GetString("language")),
		}

		err = server.Run(config, scanner, logger)
		if err != nil {
			exitWithError(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	setServerFlags(serverCmd)
}

func setServerFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.SortFlags = false

	setScannerFlags(cmd)
	flags.String("listen-address", "localhost", "address at which to listen")
	flags.String("listen-port", "4003", "port at which to listen")
	flags.String("log-level", "info", "minimum level of logged messages")
}
