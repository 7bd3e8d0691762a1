package gpio

import (
	"fmt"
	"time"
)

// FakeBoard is a test double that records writes and lets tests drive the
// clock, inputs and edge interrupts.
type FakeBoard struct {
	// Ms and Us are the current clock values. BusyWaitUs advances Us.
	Ms uint32
	Us uint32

	// Modes records the last SetMode per pin.
	Modes map[Pin]Mode

	// Levels records the last Write per pin.
	Levels map[Pin]bool

	// Writes records every Write in order.
	Writes []PinWrite

	// Inputs holds the values returned by Read.
	Inputs map[Pin]bool

	// Duty records the last AnalogWrite per pin.
	Duty map[Pin]uint8

	// Tones records the frequency sounding on each pin (0 = silent).
	Tones map[Pin]uint32

	// Angles records every WriteAngle in order.
	Angles []uint8

	// BusyWaits records every BusyWaitUs argument in order.
	BusyWaits []uint32

	// Disables counts DisableInterrupts calls.
	Disables int

	// SetModeError, if set, is returned by SetMode.
	SetModeError error

	// Closed tracks if Close was called.
	Closed bool

	handlers map[Pin]EdgeHandler
	masked   int
	pending  []pendingEdge
}

// PinWrite is a single recorded digital write.
type PinWrite struct {
	Pin  Pin
	High bool
}

type pendingEdge struct {
	pin     Pin
	rising  bool
	stampUs uint32
}

// NewFakeBoard creates a FakeBoard with the clock at zero.
func NewFakeBoard() *FakeBoard {
	return &FakeBoard{
		Modes:    make(map[Pin]Mode),
		Levels:   make(map[Pin]bool),
		Inputs:   make(map[Pin]bool),
		Duty:     make(map[Pin]uint8),
		Tones:    make(map[Pin]uint32),
		handlers: make(map[Pin]EdgeHandler),
	}
}

// SetMode records the pin mode.
func (f *FakeBoard) SetMode(pin Pin, mode Mode) error {
	if f.SetModeError != nil {
		return f.SetModeError
	}
	f.Modes[pin] = mode
	return nil
}

// Write records the level.
func (f *FakeBoard) Write(pin Pin, high bool) {
	f.Levels[pin] = high
	f.Writes = append(f.Writes, PinWrite{Pin: pin, High: high})
}

// Read returns the scripted input value.
func (f *FakeBoard) Read(pin Pin) bool {
	return f.Inputs[pin]
}

// AnalogWrite records the duty.
func (f *FakeBoard) AnalogWrite(pin Pin, duty uint8) {
	f.Duty[pin] = duty
}

// NowMs returns Ms.
func (f *FakeBoard) NowMs() uint32 {
	return f.Ms
}

// NowUs returns Us.
func (f *FakeBoard) NowUs() uint32 {
	return f.Us
}

// BusyWaitUs advances the microsecond clock.
func (f *FakeBoard) BusyWaitUs(n uint32) {
	f.BusyWaits = append(f.BusyWaits, n)
	f.Us += n
}

// Advance moves both clocks forward by d. Both wrap like real counters.
func (f *FakeBoard) Advance(d time.Duration) {
	f.Ms += uint32(d / time.Millisecond)
	f.Us += uint32(d / time.Microsecond)
}

// OnEdge registers the handler for pin.
func (f *FakeBoard) OnEdge(pin Pin, handler EdgeHandler) error {
	if handler == nil {
		return fmt.Errorf("pin %d: nil edge handler", pin)
	}
	f.handlers[pin] = handler
	return nil
}

// DisableInterrupts masks edge delivery. Calls nest.
func (f *FakeBoard) DisableInterrupts() {
	f.Disables++
	f.masked++
}

// EnableInterrupts unmasks edge delivery and replays latched edges.
func (f *FakeBoard) EnableInterrupts() {
	if f.masked > 0 {
		f.masked--
	}
	if f.masked > 0 {
		return
	}
	pending := f.pending
	f.pending = nil
	for _, e := range pending {
		f.fire(e)
	}
}

// Masked reports whether interrupts are currently disabled.
func (f *FakeBoard) Masked() bool {
	return f.masked > 0
}

// Edge simulates a transition on pin at stampUs. While interrupts are masked
// the edge is latched and delivered on EnableInterrupts.
func (f *FakeBoard) Edge(pin Pin, rising bool, stampUs uint32) {
	e := pendingEdge{pin: pin, rising: rising, stampUs: stampUs}
	if f.masked > 0 {
		f.pending = append(f.pending, e)
		return
	}
	f.fire(e)
}

// Echo simulates a complete echo pulse: rising edge at rise, falling at fall.
func (f *FakeBoard) Echo(pin Pin, rise, fall uint32) {
	f.Edge(pin, true, rise)
	f.Edge(pin, false, fall)
}

func (f *FakeBoard) fire(e pendingEdge) {
	if h := f.handlers[e.pin]; h != nil {
		h(e.rising, e.stampUs)
	}
}

// Tone records the frequency.
func (f *FakeBoard) Tone(pin Pin, hz uint32) {
	f.Tones[pin] = hz
}

// NoTone silences the pin.
func (f *FakeBoard) NoTone(pin Pin) {
	f.Tones[pin] = 0
}

// WriteAngle records the angle.
func (f *FakeBoard) WriteAngle(angle uint8) {
	f.Angles = append(f.Angles, angle)
}

// Close marks the board as closed.
func (f *FakeBoard) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes without touching the clock or handlers.
func (f *FakeBoard) Reset() {
	f.Writes = nil
	f.Angles = nil
	f.BusyWaits = nil
	f.Disables = 0
	f.Closed = false
}
