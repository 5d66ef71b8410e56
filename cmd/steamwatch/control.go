package main

import (
	"fmt"

	"tools.zach/dev/steamwatch/internal/config"
	"tools.zach/dev/steamwatch/internal/timefmt"
)

// ///////////////////////////////////////////////
// Runtime Controls
// ///////////////////////////////////////////////

// control is a runtime reconfiguration triggered by a signal.
type control int

const (
	ctlToggleActiveInactive control = iota + 1
	ctlToggleActivity
	ctlToggleStatus
	ctlIncreaseActive
	ctlDecreaseActive
	ctlReloadSecrets
)

// applyControl applies c to live and returns the acknowledgement lines.
// reload is called for [ctlReloadSecrets].
func applyControl(c control, live *config.Live, reload func() error) []string {
	switch c {
	case ctlToggleActiveInactive:
		rt := live.Update(func(r config.Runtime) config.Runtime {
			r.Notify.ActiveInactive = !r.Notify.ActiveInactive
			return r
		})
		return []string{fmt.Sprintf("Email notifications: [active/inactive status changes = %t]", rt.Notify.ActiveInactive)}

	case ctlToggleActivity:
		rt := live.Update(func(r config.Runtime) config.Runtime {
			r.Notify.ActivityChanges = !r.Notify.ActivityChanges
			return r
		})
		return []string{fmt.Sprintf("Email notifications: [game changes = %t]", rt.Notify.ActivityChanges)}

	case ctlToggleStatus:
		rt := live.Update(func(r config.Runtime) config.Runtime {
			r.Notify.StatusChanges = !r.Notify.StatusChanges
			return r
		})
		return []string{fmt.Sprintf("Email notifications: [all status changes = %t]", rt.Notify.StatusChanges)}

	case ctlIncreaseActive, ctlDecreaseActive:
		steps := 1
		if c == ctlDecreaseActive {
			steps = -1
		}
		rt := live.Update(func(r config.Runtime) config.Runtime {
			return r.ShiftActiveInterval(steps)
		})
		return []string{fmt.Sprintf("Steam timers: [active check interval: %s]", timefmt.Duration(rt.ActiveInterval))}

	case ctlReloadSecrets:
		if reload == nil {
			return []string{"Secrets reload not available"}
		}
		if err := reload(); err != nil {
			return []string{fmt.Sprintf("Secrets reload failed: %v", err)}
		}
		return []string{"Secrets reloaded"}

	default:
		return []string{fmt.Sprintf("Unknown control %d", int(c))}
	}
}
