/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Seann-Moser/useless/pkg/choreo"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every choreography against the configured actuator limits",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := cfg.Actuators.Map()
		if err != nil {
			return err
		}
		cat := choreo.Builtin()
		if err := cat.Validate(m); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d choreographies ok\n", cat.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
