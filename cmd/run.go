/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Seann-Moser/useless/pkg/controller"
	"github.com/Seann-Moser/useless/pkg/io"
)

var seed uint64

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the trigger switch and play a random choreography on every press",
	Long: `run parks every actuator, then polls the trigger switch until interrupted.
The first SIGINT or SIGTERM stops accepting presses and waits for the active
choreography to finish; a second one stops it at the next keyframe and parks.
On the way out every actuator is parked and the servo board is put to sleep.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openMachine()
		if err != nil {
			return err
		}
		defer m.Close()

		if err := m.engine.Park(); err != nil {
			return fmt.Errorf("park: %w", err)
		}

		gpio, err := io.New(m.cfg.Trigger.Chip, m.logger)
		if err != nil {
			return err
		}
		defer gpio.Close()

		button, err := gpio.WatchButton(m.cfg.Trigger.Line, m.cfg.Trigger.Debounce)
		if err != nil {
			return err
		}

		opts := []controller.Option{
			controller.WithLogger(m.logger),
			controller.WithResultHook(func(r controller.Result) {
				if r.Err != nil && io.IsHardware(r.Err) {
					m.logger.Error("hardware fault during choreography", "choreography", r.Choreography, "breaker", m.bus.State())
				}
			}),
		}
		if m.cfg.Indicator.Line >= 0 {
			opts = append(opts, controller.WithIndicator(gpio.Indicator(m.cfg.Indicator.Line)))
		}
		if cmd.Flags().Changed("seed") {
			opts = append(opts, controller.WithSelector(controller.NewRandomSelector(seed)))
		}
		d := controller.New(button, m.engine, m.catalog, m.cfg.Dispatcher, opts...)

		sigs := make(chan os.Signal, 2)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigs)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go func() {
			select {
			case <-sigs:
			case <-ctx.Done():
				return
			}
			m.logger.Info("draining, waiting for the active choreography")
			cancel()
			<-sigs
			if m.engine.EmergencyStop() {
				m.logger.Warn("emergency stop requested")
			}
		}()

		m.logger.Info("machine ready", "choreographies", m.catalog.Len(), "trigger_line", m.cfg.Trigger.Line)
		if err := d.Run(ctx); err != nil {
			return err
		}
		if err := m.rest(); err != nil {
			return err
		}
		m.logger.Info("machine stopped", "button_bounces", button.Bounces())
		return nil
	},
}

func init() {
	runCmd.Flags().Uint64Var(&seed, "seed", 0, "seed the choreography selector for a reproducible sequence")
	rootCmd.AddCommand(runCmd)
}
