package main

import (
	"fmt"
	"os"

	"cvranon/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var forceConfig bool

// configCmd groups configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the cvranon configuration file",
}

// configInitCmd writes a default config file
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Long: `Writes the default configuration to the --config path (./` + config.DefaultConfigFile + `
when unset). An existing file is left alone unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: initConfig,
}

func configFile() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigFile
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := configFile()
	if _, err := os.Stat(path); err == nil && !forceConfig {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	logger.Info("Wrote default config", zap.String("path", path))
	fmt.Println(okStyle.Render("Wrote " + path))
	return nil
}
