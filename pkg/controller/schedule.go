package controller

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// schedule builds a cron that fires synthetic triggers, so the machine can
// tease on its own. Scheduled triggers obey the same busy and cooldown rules
// as the button.
func (d *Dispatcher) schedule(specs []string) (*cron.Cron, error) {
	c := cron.New()
	for _, spec := range specs {
		if _, err := c.AddFunc(spec, func() {
			if err := d.Fire("schedule:" + spec); err != nil {
				d.logger.Debug("scheduled trigger skipped", "spec", spec, "error", err)
			}
		}); err != nil {
			return nil, fmt.Errorf("schedule %q: %w", spec, err)
		}
	}
	return c, nil
}
