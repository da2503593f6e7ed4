package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/riskscan/internal/probe"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configuration and platform information",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := cfgFile
		if configPath == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to resolve home directory: %w", err)
			}
			configPath = filepath.Join(homeDir, ".riskscan.yaml")
		}

		configExists := "not found (using defaults)"
		if _, err := os.Stat(configPath); err == nil {
			configExists = "exists"
		}

		fmt.Printf("riskscan %s\n\n", Version)
		fmt.Printf("Config file:     %s (%s)\n", configPath, configExists)
		fmt.Printf("Platform:        %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Printf("Probe timeout:   %ds\n", cliConfig.Scan.TimeoutSecs)
		fmt.Printf("Scan deadline:   %ds\n", cliConfig.Scan.DeadlineSecs)
		fmt.Printf("Port workers:    %d\n", cliConfig.Scan.Workers)
		fmt.Printf("Scanned ports:   %v\n", probe.DefaultPorts())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
