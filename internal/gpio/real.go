//go:build linux && !tinygo

package gpio

import (
	"fmt"
	"log"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

// RealBoard drives actual hardware using the Linux GPIO character device.
type RealBoard struct {
	chip   *gpiocdev.Chip
	lines  map[Pin]*gpiocdev.Line
	pwm    map[Pin]*sysfsPWM
	servo  *sysfsPWM
	gate   *edgeGate
	warned map[Pin]bool
}

// NewRealBoard opens the GPIO chip and exports the configured PWM channels.
func NewRealBoard(cfg RealConfig) (*RealBoard, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	b := &RealBoard{
		chip:   chip,
		lines:  make(map[Pin]*gpiocdev.Line),
		pwm:    make(map[Pin]*sysfsPWM),
		gate:   newEdgeGate(16),
		warned: make(map[Pin]bool),
	}

	for pin, ch := range cfg.PWM {
		p, err := openPWM(ch)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("pwm for pin %d: %w", pin, err)
		}
		b.pwm[pin] = p
	}

	if cfg.Servo.Valid() {
		p, err := openPWM(cfg.Servo)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("servo pwm: %w", err)
		}
		if err := p.setPeriod(servoPeriod); err != nil {
			b.Close()
			return nil, fmt.Errorf("servo pwm: %w", err)
		}
		b.servo = p
	}

	return b, nil
}

// SetMode requests the line as input (pull-down) or output (low).
// PWM-mapped pins need no line.
func (b *RealBoard) SetMode(pin Pin, mode Mode) error {
	if _, ok := b.pwm[pin]; ok {
		return nil
	}

	if l, ok := b.lines[pin]; ok {
		if mode == Input {
			return l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown)
		}
		return l.Reconfigure(gpiocdev.AsOutput(0))
	}

	var (
		l   *gpiocdev.Line
		err error
	)
	if mode == Input {
		l, err = b.chip.RequestLine(int(pin), gpiocdev.AsInput, gpiocdev.WithPullDown)
	} else {
		l, err = b.chip.RequestLine(int(pin), gpiocdev.AsOutput(0))
	}
	if err != nil {
		return fmt.Errorf("request pin %d: %w", pin, err)
	}
	b.lines[pin] = l
	return nil
}

// Write sets an output line. A PWM-mapped pin is driven fully on or off.
func (b *RealBoard) Write(pin Pin, high bool) {
	if _, ok := b.pwm[pin]; ok {
		var duty uint8
		if high {
			duty = 255
		}
		b.AnalogWrite(pin, duty)
		return
	}
	l, ok := b.lines[pin]
	if !ok {
		b.warnOnce(pin, "write to unrequested pin")
		return
	}
	v := 0
	if high {
		v = 1
	}
	if err := l.SetValue(v); err != nil {
		b.warnOnce(pin, fmt.Sprintf("write: %v", err))
	}
}

// Read returns the level of an input line.
func (b *RealBoard) Read(pin Pin) bool {
	l, ok := b.lines[pin]
	if !ok {
		b.warnOnce(pin, "read from unrequested pin")
		return false
	}
	v, err := l.Value()
	if err != nil {
		b.warnOnce(pin, fmt.Sprintf("read: %v", err))
		return false
	}
	return v != 0
}

// AnalogWrite sets the PWM duty, or the digital level for unmapped pins.
func (b *RealBoard) AnalogWrite(pin Pin, duty uint8) {
	p, ok := b.pwm[pin]
	if !ok {
		b.Write(pin, duty >= 128)
		return
	}
	if err := p.setPeriod(ledPeriod); err != nil {
		b.warnOnce(pin, fmt.Sprintf("pwm period: %v", err))
		return
	}
	if err := p.setDuty(ledPeriod * time.Duration(duty) / 255); err != nil {
		b.warnOnce(pin, fmt.Sprintf("pwm duty: %v", err))
	}
}

// NowMs returns CLOCK_MONOTONIC in milliseconds, wrapping at 2^32.
func (b *RealBoard) NowMs() uint32 {
	return uint32(monotonic() / time.Millisecond)
}

// NowUs returns CLOCK_MONOTONIC in microseconds, wrapping at 2^32.
// It shares its base with gpiocdev event timestamps.
func (b *RealBoard) NowUs() uint32 {
	return uint32(monotonic() / time.Microsecond)
}

// BusyWaitUs spins; the scheduler must not sleep for trigger pulses.
func (b *RealBoard) BusyWaitUs(n uint32) {
	end := monotonic() + time.Duration(n)*time.Microsecond
	for monotonic() < end {
	}
}

func monotonic() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return time.Duration(ts.Nano())
}

// OnEdge requests pin as an input with both-edge events. Events are stamped by
// the kernel and delivered through the interrupt gate.
func (b *RealBoard) OnEdge(pin Pin, handler EdgeHandler) error {
	if handler == nil {
		return fmt.Errorf("pin %d: nil edge handler", pin)
	}
	b.gate.register(pin, handler)

	eh := func(evt gpiocdev.LineEvent) {
		b.gate.deliver(latchedEdge{
			pin:     Pin(evt.Offset),
			rising:  evt.Type == gpiocdev.LineEventRisingEdge,
			stampUs: uint32(evt.Timestamp / time.Microsecond),
		})
	}

	if l, ok := b.lines[pin]; ok {
		l.Close()
		delete(b.lines, pin)
	}
	l, err := b.chip.RequestLine(int(pin),
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(eh))
	if err != nil {
		return fmt.Errorf("request edge pin %d: %w", pin, err)
	}
	b.lines[pin] = l
	return nil
}

// DisableInterrupts masks edge delivery. It does not nest.
func (b *RealBoard) DisableInterrupts() {
	b.gate.lock()
}

// EnableInterrupts replays latched edges and unmasks delivery.
func (b *RealBoard) EnableInterrupts() {
	b.gate.unlock()
}

// DroppedEdges returns the number of edges lost while masked.
func (b *RealBoard) DroppedEdges() uint32 {
	return b.gate.Dropped()
}

// Tone plays hz on a PWM-mapped pin, or holds an active buzzer high.
func (b *RealBoard) Tone(pin Pin, hz uint32) {
	p, ok := b.pwm[pin]
	if !ok || hz == 0 {
		b.Write(pin, hz != 0)
		return
	}
	period := time.Second / time.Duration(hz)
	if err := p.setPeriod(period); err != nil {
		b.warnOnce(pin, fmt.Sprintf("tone period: %v", err))
		return
	}
	if err := p.setDuty(period / 2); err != nil {
		b.warnOnce(pin, fmt.Sprintf("tone duty: %v", err))
	}
}

// NoTone silences the pin.
func (b *RealBoard) NoTone(pin Pin) {
	if p, ok := b.pwm[pin]; ok {
		if err := p.setDuty(0); err != nil {
			b.warnOnce(pin, fmt.Sprintf("tone off: %v", err))
		}
		return
	}
	b.Write(pin, false)
}

// WriteAngle maps 0..180 degrees onto a 500..2500us servo pulse.
func (b *RealBoard) WriteAngle(angle uint8) {
	if b.servo == nil {
		return
	}
	if err := b.servo.setDuty(servoPulse(angle)); err != nil {
		b.warnOnce(-1, fmt.Sprintf("servo: %v", err))
	}
}

func (b *RealBoard) warnOnce(pin Pin, msg string) {
	if b.warned[pin] {
		return
	}
	b.warned[pin] = true
	log.Printf("gpio: pin %d: %s", pin, msg)
}

// Close reconfigures lines as pulled-down inputs and releases everything.
func (b *RealBoard) Close() error {
	var errs []error

	for pin, l := range b.lines {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	b.lines = nil

	for pin, p := range b.pwm {
		if err := p.close(); err != nil {
			errs = append(errs, fmt.Errorf("close pwm for pin %d: %w", pin, err))
		}
	}
	if b.servo != nil {
		if err := b.servo.close(); err != nil {
			errs = append(errs, fmt.Errorf("close servo pwm: %w", err))
		}
	}

	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
