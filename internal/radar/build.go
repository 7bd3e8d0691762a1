package radar

import (
	"fmt"

	"github.com/sweeney/radar-sensor/internal/actuator"
	"github.com/sweeney/radar-sensor/internal/gpio"
	"github.com/sweeney/radar-sensor/internal/sonar"
)

// Pins is the wiring of every device the controller drives.
type Pins struct {
	Trigger, Echo, Presence gpio.Pin
	Red, Green, Blue        gpio.Pin
	Buzzer                  gpio.Pin
}

// DefaultPins returns the Raspberry Pi wiring (BCM numbering).
func DefaultPins() Pins {
	return Pins{
		Trigger:  gpio.DefaultPinTrigger,
		Echo:     gpio.DefaultPinEcho,
		Presence: gpio.DefaultPinPresence,
		Red:      gpio.DefaultPinRed,
		Green:    gpio.DefaultPinGreen,
		Blue:     gpio.DefaultPinBlue,
		Buzzer:   gpio.DefaultPinBuzzer,
	}
}

// Build initialises every device on board and returns a Controller ready
// for Start.
func Build(board gpio.Board, p Pins, cfg Config) (*Controller, error) {
	sensor := sonar.New(board, p.Trigger, p.Echo)
	if err := sensor.Init(); err != nil {
		return nil, fmt.Errorf("init sonar: %w", err)
	}
	led := actuator.NewLED(board, p.Red, p.Green, p.Blue)
	if err := led.Init(); err != nil {
		return nil, fmt.Errorf("init led: %w", err)
	}
	buzzer := actuator.NewBuzzer(board, p.Buzzer)
	if err := buzzer.Init(); err != nil {
		return nil, fmt.Errorf("init buzzer: %w", err)
	}
	pir := NewPIR(board, p.Presence)
	if err := pir.Init(); err != nil {
		return nil, fmt.Errorf("init presence: %w", err)
	}

	return New(cfg, Parts{
		Clock:     board,
		Sensor:    sensor,
		Indicator: led,
		Alarm:     buzzer,
		Presence:  pir,
	})
}
