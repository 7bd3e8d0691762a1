package actuator

import (
	"fmt"

	"github.com/sweeney/radar-sensor/internal/gpio"
)

// BuzzerBoard is the subset of gpio.Board a Buzzer needs.
type BuzzerBoard interface {
	gpio.Pins
	gpio.Tone
}

// Buzzer sounds an alarm tone on one pin.
type Buzzer struct {
	board    BuzzerBoard
	pin      gpio.Pin
	sounding uint32
}

// NewBuzzer creates a Buzzer. Call Init before use.
func NewBuzzer(board BuzzerBoard, pin gpio.Pin) *Buzzer {
	return &Buzzer{board: board, pin: pin}
}

// Init configures the pin and makes sure the buzzer is quiet.
func (b *Buzzer) Init() error {
	if err := b.board.SetMode(b.pin, gpio.Output); err != nil {
		return fmt.Errorf("buzzer pin %d: %w", b.pin, err)
	}
	b.board.NoTone(b.pin)
	return nil
}

// Sound starts a tone at hz.
func (b *Buzzer) Sound(hz uint32) {
	b.sounding = hz
	b.board.Tone(b.pin, hz)
}

// Silence stops the tone.
func (b *Buzzer) Silence() {
	b.sounding = 0
	b.board.NoTone(b.pin)
}

// Sounding returns the current frequency, or 0 when silent.
func (b *Buzzer) Sounding() uint32 {
	return b.sounding
}
