package gpio

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	servoPeriod   = 20 * time.Millisecond
	servoMinPulse = 500 * time.Microsecond
	servoMaxPulse = 2500 * time.Microsecond
	ledPeriod     = time.Millisecond
)

// RealConfig selects the chip and PWM channels for a RealBoard.
type RealConfig struct {
	// Chip is the GPIO character device, e.g. "gpiochip0".
	Chip string

	// PWM maps output pins to sysfs PWM channels. Pins without a channel
	// fall back to digital output (duty >= 128 is high).
	PWM map[Pin]PWMChannel

	// Servo is the sysfs PWM channel driving the sweep servo.
	// A zero value disables servo output.
	Servo PWMChannel
}

// PWMChannel names /sys/class/pwm/pwmchip<Chip>/pwm<Channel>.
type PWMChannel struct {
	Chip    int
	Channel int
	set     bool
}

// Valid reports whether the channel was configured.
func (c PWMChannel) Valid() bool {
	return c.set
}

func (c PWMChannel) String() string {
	if !c.set {
		return "off"
	}
	return fmt.Sprintf("%d:%d", c.Chip, c.Channel)
}

// ParsePWMChannel parses "chip:channel". An empty string or "off" yields an
// unset channel.
func ParsePWMChannel(s string) (PWMChannel, error) {
	if s == "" || s == "off" {
		return PWMChannel{}, nil
	}
	chip, channel, ok := strings.Cut(s, ":")
	if !ok {
		return PWMChannel{}, fmt.Errorf("pwm channel %q: want chip:channel", s)
	}
	c, err := strconv.Atoi(chip)
	if err != nil || c < 0 {
		return PWMChannel{}, fmt.Errorf("pwm channel %q: bad chip", s)
	}
	n, err := strconv.Atoi(channel)
	if err != nil || n < 0 {
		return PWMChannel{}, fmt.Errorf("pwm channel %q: bad channel", s)
	}
	return PWMChannel{Chip: c, Channel: n, set: true}, nil
}

// servoPulse maps 0..180 degrees linearly onto the servo pulse range.
func servoPulse(angle uint8) time.Duration {
	if angle > 180 {
		angle = 180
	}
	return servoMinPulse + (servoMaxPulse-servoMinPulse)*time.Duration(angle)/180
}
