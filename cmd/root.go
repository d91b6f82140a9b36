/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Seann-Moser/useless/pkg/config"
	"github.com/Seann-Moser/useless/pkg/io"
)

var (
	cfgFile     string
	logLevel    string
	busOverride string
)

var rootCmd = &cobra.Command{
	Use:   "useless",
	Short: "Drive a lid/arm/flag useless machine from a PCA9685 servo board",
	Long: `useless plays servo choreographies on a useless machine: every press of
the trigger switch opens the lid, lets the arm flip the switch back and
closes up again, choosing one of the catalog's choreographies at random.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logger.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&busOverride, "bus", "", "override bus.backend (periph, gobot, sim)")
}

// Execute runs the root command. Hardware failures exit with status 2, any
// other failure with 1.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	if io.IsHardware(err) {
		os.Exit(2)
	}
	os.Exit(1)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, err
	}
	if logLevel != "" {
		cfg.Logger.Level = logLevel
	}
	if busOverride != "" {
		cfg.Bus.Backend = busOverride
		if err := cfg.Validate(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}
