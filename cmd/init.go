package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/mmverify/verify"
)

// initCmd: mmverify init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new verifier configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		path, err := initConfigurationFile(cfgFile)
		if err != nil {
			logger.Error("Error initializing config file", zap.Error(err))
			return
		}
		fmt.Printf("Configuration file created/updated: %s\n", path)
	},
}

func initConfigurationFile(configurationPath string) (string, error) {
	if configurationPath == "" {
		configurationPath = verify.DefaultConfigPath
	}
	if err := verify.DefaultConfig().Save(configurationPath); err != nil {
		return "", err
	}
	return configurationPath, nil
}
