/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Seann-Moser/useless/pkg/pwm"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Calibrate the expander and report its registers and the engine phase",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openMachine()
		if err != nil {
			return err
		}
		defer m.Close()

		mode, prescale, err := m.driver.Readback()
		if err != nil {
			return err
		}
		st := m.engine.Status()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "bus       %s @ 0x%02X (breaker %s)\n", m.cfg.Bus.Backend, m.cfg.Bus.Address, m.bus.State())
		fmt.Fprintf(out, "mode1     0x%02X\n", mode)
		fmt.Fprintf(out, "prescale  %d (want %d)\n", prescale, pwm.Prescale(pwm.ServoFrequency))
		fmt.Fprintf(out, "engine    %s\n", st.Phase)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
