package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCmd = &cobra.Command{
	Use:   "passcheck",
	Short: "Verify 2D-Doc and EU Digital Green Certificates",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		exitWithError(err)
	}
}

func readConfig() error {
	configPath := viper.GetString("config")
	if configPath == "" {
		return nil
	}

	dir, file := filepath.Dir(configPath), filepath.Base(configPath)
	viper.SetConfigName(strings.TrimSuffix(file, filepath.Ext(file)))
	viper.AddConfigPath(dir)

	err := viper.ReadInConfig()
	if err != nil {
		msg := fmt.Sprintf("Could not read or apply config file %s", configPath)
		return errors.WrapPrefix(err, msg, 0)
	}

	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	err := lvl.UnmarshalText([]byte(level))
	if err != nil {
		return nil, errors.WrapPrefix(err, fmt.Sprintf("Could not parse log level %s", level), 0)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := config.Build()
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not build logger", 0)
	}

	return logger, nil
}

func exitWithError(err error) {
	_, _ = fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
