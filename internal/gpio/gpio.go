// Package gpio provides the hardware capability surface used by the radar.
// The real implementation uses the Linux GPIO character device.
// The machine implementation targets TinyGo microcontrollers.
// The fake implementation allows testing without hardware.
package gpio

// Pin identifies a GPIO line (BCM numbering on the Pi, machine pin on TinyGo).
type Pin int

// Mode is the direction a pin is configured for.
type Mode uint8

const (
	Input Mode = iota
	Output
)

// EdgeHandler is called for every transition on a watched pin.
// stampUs is the NowUs() clock value at which the edge occurred.
// It runs in interrupt context and must only record the edge.
type EdgeHandler func(rising bool, stampUs uint32)

// Pins reads and writes digital lines.
type Pins interface {
	SetMode(pin Pin, mode Mode) error
	Write(pin Pin, high bool)
	Read(pin Pin) bool
}

// PWM drives a brightness-style output. duty is 0 (off) to 255 (fully on).
type PWM interface {
	AnalogWrite(pin Pin, duty uint8)
}

// Clock provides wrapping millisecond and microsecond counters.
type Clock interface {
	// NowMs wraps at 2^32 milliseconds.
	NowMs() uint32
	// NowUs wraps at 2^32 microseconds.
	NowUs() uint32
	BusyWaitUs(n uint32)
}

// Interrupts controls asynchronous edge delivery.
type Interrupts interface {
	OnEdge(pin Pin, handler EdgeHandler) error
	DisableInterrupts()
	EnableInterrupts()
}

// Tone drives a square wave on a pin, for buzzers.
type Tone interface {
	Tone(pin Pin, hz uint32)
	NoTone(pin Pin)
}

// Servo positions the sweep servo.
type Servo interface {
	WriteAngle(angle uint8)
}

// Board is the full capability surface of a target.
type Board interface {
	Pins
	PWM
	Clock
	Interrupts
	Tone
	Servo

	// Close releases hardware resources.
	Close() error
}

// Default pin assignments (BCM numbering).
const (
	DefaultPinTrigger  = 23
	DefaultPinEcho     = 24
	DefaultPinPresence = 17
	DefaultPinRed      = 12
	DefaultPinGreen    = 13
	DefaultPinBlue     = 6
	DefaultPinBuzzer   = 19
	DefaultPinServo    = 18
)

// Section is an acquired critical section. Release re-enables interrupts.
type Section struct {
	irq Interrupts
}

// Critical disables interrupts until the returned Section is released.
//
//	cs := gpio.Critical(board)
//	defer cs.Release()
func Critical(irq Interrupts) Section {
	irq.DisableInterrupts()
	return Section{irq: irq}
}

// Release ends the critical section. Releasing a zero Section is a no-op.
func (s *Section) Release() {
	if s.irq == nil {
		return
	}
	s.irq.EnableInterrupts()
	s.irq = nil
}
