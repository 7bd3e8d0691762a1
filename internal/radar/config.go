package radar

import (
	"fmt"
	"time"

	"github.com/sweeney/radar-sensor/internal/sched"
)

// Config holds distance bands, timeouts and task periods.
type Config struct {
	// Distance bands in millimetres: Warning < Alert < Caution.
	WarningMM uint32
	AlertMM   uint32
	CautionMM uint32

	// StandbyTimeout is how long readings must stay beyond CautionMM before
	// the radar returns to standby.
	StandbyTimeout time.Duration

	PresencePeriod     time.Duration
	StandbyPulsePeriod time.Duration
	SweepPeriod        time.Duration
	PingPeriod         time.Duration
	WarningPulsePeriod time.Duration

	StandbyPulseStep int8
	WarningPulseStep int8

	AlarmHz uint32
}

// DefaultConfig returns the tuning used on the reference hardware.
func DefaultConfig() Config {
	return Config{
		WarningMM:          60,
		AlertMM:            300,
		CautionMM:          600,
		StandbyTimeout:     30 * time.Second,
		PresencePeriod:     250 * time.Millisecond,
		StandbyPulsePeriod: 33 * time.Millisecond,
		SweepPeriod:        25 * time.Millisecond,
		PingPeriod:         550 * time.Millisecond,
		WarningPulsePeriod: 10 * time.Millisecond,
		StandbyPulseStep:   5,
		WarningPulseStep:   12,
		AlarmHz:            500,
	}
}

// Validate checks the bands are ascending and every period is positive.
func (c Config) Validate() error {
	if !(c.WarningMM < c.AlertMM && c.AlertMM < c.CautionMM) {
		return fmt.Errorf("distance bands must ascend: warning=%d alert=%d caution=%d",
			c.WarningMM, c.AlertMM, c.CautionMM)
	}
	periods := map[string]time.Duration{
		"presence":      c.PresencePeriod,
		"standby pulse": c.StandbyPulsePeriod,
		"sweep":         c.SweepPeriod,
		"ping":          c.PingPeriod,
		"warning pulse": c.WarningPulsePeriod,
	}
	for name, p := range periods {
		if p < time.Millisecond {
			return fmt.Errorf("%s period %v: must be at least 1ms", name, p)
		}
	}
	if c.StandbyTimeout < 0 {
		return fmt.Errorf("standby timeout %v: must not be negative", c.StandbyTimeout)
	}
	return nil
}

func ms(d time.Duration) uint32 {
	return uint32(d / time.Millisecond)
}

// Scheduled action identities.
const (
	ActionSweep sched.ActionID = iota
	ActionPing
	ActionPresence
	ActionPulse
)
