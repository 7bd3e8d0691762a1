package radar

import "fmt"

// State is the controller's operating mode.
type State uint8

const (
	Standby State = iota
	Sensing
	Warning
)

func (s State) String() string {
	switch s {
	case Standby:
		return "standby"
	case Sensing:
		return "sensing"
	case Warning:
		return "warning"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// start installs the state's scheduled actions and outputs.
func (s State) start(c *Controller) {
	cfg := &c.cfg
	switch s {
	case Standby:
		c.SetIndicator(calm)
		c.indicator.SetPulse(cfg.StandbyPulseStep)
		c.sched.Add(ActionPresence, ms(cfg.PresencePeriod))
		c.sched.Add(ActionPulse, ms(cfg.StandbyPulsePeriod))
	case Sensing:
		c.sched.Add(ActionSweep, ms(cfg.SweepPeriod))
		c.sched.Add(ActionPing, ms(cfg.PingPeriod))
	case Warning:
		c.indicator.SetPulse(cfg.WarningPulseStep)
		c.SetIndicator(alert)
		c.sched.Add(ActionPulse, ms(cfg.WarningPulsePeriod))
		c.alarm.Sound(cfg.AlarmHz)
	}
}

// update reacts to a reading. In Standby x is the presence signal; otherwise
// it is a distance in millimetres.
func (s State) update(c *Controller, x uint32) {
	cfg := &c.cfg
	switch s {
	case Standby:
		if x == 0 {
			return
		}
		c.sched.Remove(ActionPresence)
		c.sched.Remove(ActionPulse)
		c.MarkInRange()
		c.transition(Sensing, x)

	case Sensing:
		switch {
		case x < cfg.WarningMM:
			c.MarkInRange()
			c.SetIndicator(alert)
			c.transition(Warning, x)
		case x < cfg.AlertMM:
			c.MarkInRange()
			c.SetIndicator(alert)
		case x < cfg.CautionMM:
			c.MarkInRange()
			c.SetIndicator(caution)
		default:
			c.SetIndicator(calm)
			if c.SinceInRange() >= ms(cfg.StandbyTimeout) {
				c.sched.Remove(ActionSweep)
				c.sched.Remove(ActionPing)
				c.transition(Standby, x)
			}
		}

	case Warning:
		if x < cfg.WarningMM {
			return
		}
		c.alarm.Silence()
		c.sched.Remove(ActionPulse)
		c.transition(Sensing, x)
	}
}
