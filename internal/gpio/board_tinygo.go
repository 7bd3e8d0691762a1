//go:build tinygo

package gpio

import (
	"fmt"
	"machine"
	"runtime/interrupt"
	"time"

	"tinygo.org/x/drivers/servo"
	"tinygo.org/x/drivers/tone"
)

// PWMPeripheral abstracts over TinyGo's unexported PWM group types.
type PWMPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// MachineConfig wires PWM peripherals to pins on a microcontroller.
type MachineConfig struct {
	// LED maps brightness pins to the PWM peripheral that drives them.
	LED map[Pin]PWMPeripheral

	ServoPWM servo.PWM
	ServoPin Pin

	BuzzerPWM tone.PWM
	BuzzerPin Pin
}

type pwmOut struct {
	pwm PWMPeripheral
	ch  uint8
}

// MachineBoard drives a TinyGo target directly.
type MachineBoard struct {
	start  time.Time
	leds   map[Pin]pwmOut
	servo  *servo.Servo
	buzzer *tone.Speaker
	bpin   Pin
	irq    interrupt.State
}

// NewMachineBoard configures the PWM peripherals named in cfg.
func NewMachineBoard(cfg MachineConfig) (*MachineBoard, error) {
	b := &MachineBoard{
		start: time.Now(),
		leds:  make(map[Pin]pwmOut),
		bpin:  -1,
	}

	for pin, pwm := range cfg.LED {
		if err := pwm.Configure(machine.PWMConfig{Period: uint64(ledPeriod)}); err != nil {
			return nil, fmt.Errorf("led pwm for pin %d: %w", pin, err)
		}
		ch, err := pwm.Channel(machine.Pin(pin))
		if err != nil {
			return nil, fmt.Errorf("led channel for pin %d: %w", pin, err)
		}
		b.leds[pin] = pwmOut{pwm: pwm, ch: ch}
	}

	if cfg.ServoPWM != nil {
		s, err := servo.New(cfg.ServoPWM, machine.Pin(cfg.ServoPin))
		if err != nil {
			return nil, fmt.Errorf("servo: %w", err)
		}
		b.servo = &s
	}

	if cfg.BuzzerPWM != nil {
		spk, err := tone.New(cfg.BuzzerPWM, machine.Pin(cfg.BuzzerPin))
		if err != nil {
			return nil, fmt.Errorf("buzzer: %w", err)
		}
		spk.Stop()
		b.buzzer = &spk
		b.bpin = cfg.BuzzerPin
	}

	return b, nil
}

func (b *MachineBoard) SetMode(pin Pin, mode Mode) error {
	if _, ok := b.leds[pin]; ok {
		return nil
	}
	m := machine.PinOutput
	if mode == Input {
		m = machine.PinInputPulldown
	}
	machine.Pin(pin).Configure(machine.PinConfig{Mode: m})
	return nil
}

func (b *MachineBoard) Write(pin Pin, high bool) {
	if out, ok := b.leds[pin]; ok {
		var v uint32
		if high {
			v = out.pwm.Top()
		}
		out.pwm.Set(out.ch, v)
		return
	}
	machine.Pin(pin).Set(high)
}

func (b *MachineBoard) Read(pin Pin) bool {
	return machine.Pin(pin).Get()
}

func (b *MachineBoard) AnalogWrite(pin Pin, duty uint8) {
	out, ok := b.leds[pin]
	if !ok {
		machine.Pin(pin).Set(duty >= 128)
		return
	}
	out.pwm.Set(out.ch, out.pwm.Top()*uint32(duty)/255)
}

func (b *MachineBoard) NowMs() uint32 {
	return uint32(time.Since(b.start) / time.Millisecond)
}

func (b *MachineBoard) NowUs() uint32 {
	return uint32(time.Since(b.start) / time.Microsecond)
}

func (b *MachineBoard) BusyWaitUs(n uint32) {
	end := time.Now().Add(time.Duration(n) * time.Microsecond)
	for time.Now().Before(end) {
	}
}

// OnEdge attaches handler to a pin-change interrupt on both edges.
func (b *MachineBoard) OnEdge(pin Pin, handler EdgeHandler) error {
	if handler == nil {
		return fmt.Errorf("pin %d: nil edge handler", pin)
	}
	mp := machine.Pin(pin)
	mp.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	return mp.SetInterrupt(machine.PinToggle, func(p machine.Pin) {
		handler(p.Get(), b.NowUs())
	})
}

// DisableInterrupts masks all interrupts. It does not nest.
func (b *MachineBoard) DisableInterrupts() {
	b.irq = interrupt.Disable()
}

func (b *MachineBoard) EnableInterrupts() {
	interrupt.Restore(b.irq)
}

func (b *MachineBoard) Tone(pin Pin, hz uint32) {
	if b.buzzer == nil || pin != b.bpin || hz == 0 {
		b.Write(pin, hz != 0)
		return
	}
	b.buzzer.SetPeriod(uint64(time.Second) / uint64(hz))
}

func (b *MachineBoard) NoTone(pin Pin) {
	if b.buzzer == nil || pin != b.bpin {
		b.Write(pin, false)
		return
	}
	b.buzzer.Stop()
}

func (b *MachineBoard) WriteAngle(angle uint8) {
	if b.servo == nil {
		return
	}
	b.servo.SetMicroseconds(int16(servoPulse(angle) / time.Microsecond))
}

// Close silences the buzzer. Pins stay configured.
func (b *MachineBoard) Close() error {
	if b.buzzer != nil {
		b.buzzer.Stop()
	}
	return nil
}
