/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play <choreography>",
	Short: "Play one choreography by number and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("choreography must be a number: %w", err)
		}

		m, err := openMachine()
		if err != nil {
			return err
		}
		defer m.Close()

		c, err := m.catalog.Get(id)
		if err != nil {
			return err
		}
		if err := m.engine.Park(); err != nil {
			return fmt.Errorf("park: %w", err)
		}
		if err := m.engine.Run(cmd.Context(), c); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "played %d %s (%s)\n", c.ID, c.Name, c.Duration())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
}
