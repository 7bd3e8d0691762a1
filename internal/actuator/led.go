// Package actuator drives the radar's outputs: an RGB indicator LED and a
// buzzer.
package actuator

import (
	"fmt"

	"github.com/sweeney/radar-sensor/internal/gpio"
)

// Color is an indicator colour.
type Color uint8

const (
	Green Color = iota
	Yellow
	Red
	Off
)

func (c Color) String() string {
	switch c {
	case Green:
		return "green"
	case Yellow:
		return "yellow"
	case Red:
		return "red"
	case Off:
		return "off"
	}
	return fmt.Sprintf("Color(%d)", uint8(c))
}

// LEDBoard is the subset of gpio.Board an LED needs.
type LEDBoard interface {
	gpio.Pins
	gpio.PWM
}

// LED is a common-cathode RGB LED whose lit channels pulse in brightness.
type LED struct {
	board            LEDBoard
	red, green, blue gpio.Pin

	color      Color
	brightness uint8
	step       int8
}

// NewLED creates an LED. Call Init before use.
func NewLED(board LEDBoard, red, green, blue gpio.Pin) *LED {
	return &LED{
		board:      board,
		red:        red,
		green:      green,
		blue:       blue,
		color:      Off,
		brightness: 255,
		step:       5,
	}
}

// Init configures the pins as outputs with the LED dark.
func (l *LED) Init() error {
	for _, p := range []gpio.Pin{l.red, l.green, l.blue} {
		if err := l.board.SetMode(p, gpio.Output); err != nil {
			return fmt.Errorf("led pin %d: %w", p, err)
		}
		l.board.Write(p, false)
	}
	return nil
}

// Color returns the current colour.
func (l *LED) Color() Color {
	return l.color
}

// Brightness returns the current pulse brightness.
func (l *LED) Brightness() uint8 {
	return l.brightness
}

// SetColor switches colour at full brightness. Setting the current colour is
// a no-op so a running pulse is not restarted.
func (l *LED) SetColor(c Color) {
	if c == l.color {
		return
	}
	l.color = c
	l.brightness = 255

	r, g := false, false
	switch c {
	case Red:
		r = true
	case Yellow:
		r, g = true, true
	case Green:
		g = true
	}
	l.board.Write(l.red, r)
	l.board.Write(l.green, g)
	l.board.Write(l.blue, false)
}

// SetPulse sets how much brightness changes per Pulse call.
func (l *LED) SetPulse(step int8) {
	l.step = step
}

// Pulse moves brightness one step, reversing at 0 and 255, and writes it to
// the lit channels.
func (l *LED) Pulse() {
	if l.brightness == 0 || l.brightness == 255 {
		l.step = -l.step
	}

	if l.step < 0 {
		dec := uint8(-int16(l.step))
		if l.brightness >= dec {
			l.brightness -= dec
		} else {
			l.brightness = 0
		}
	} else {
		inc := uint8(l.step)
		if 255-l.brightness >= inc {
			l.brightness += inc
		} else {
			l.brightness = 255
		}
	}

	switch l.color {
	case Green:
		l.board.AnalogWrite(l.green, l.brightness)
	case Red:
		l.board.AnalogWrite(l.red, l.brightness)
	case Yellow:
		l.board.AnalogWrite(l.red, l.brightness)
		l.board.AnalogWrite(l.green, l.brightness)
	}
}
