// Package sonar drives an HC-SR04 style ultrasonic sensor mounted on a sweep
// servo. Measurements are pipelined: each Measure call triggers a new pulse
// and returns the distance captured by the edge handler for the previous one.
package sonar

import (
	"fmt"
	"math"

	"github.com/sweeney/radar-sensor/internal/gpio"
)

// NoEcho is returned when the sensor reported nothing in range, or when no
// complete echo was captured since the last Measure.
const NoEcho uint32 = math.MaxUint32

// MaxAngle is the upper sweep bound in degrees.
const MaxAngle = 180

// StartAngle is the servo position after Init.
const StartAngle = 90

// noEchoWidth is the pulse width, in microseconds, the sensor emits when it
// detects nothing.
const noEchoWidth = 38

// Trigger pulse timing in microseconds.
const (
	triggerSettleUs = 2
	triggerPulseUs  = 10
)

// Board is the subset of gpio.Board the sensor needs.
type Board interface {
	gpio.Pins
	gpio.Clock
	gpio.Interrupts
	gpio.Servo
}

// Sample holds the edge timestamps of one echo pulse. It is written by the
// edge handler and read as a pair inside a critical section.
type Sample struct {
	Rise, Fall         uint32
	HaveRise, HaveFall bool
}

// Complete reports whether both edges were captured.
func (s Sample) Complete() bool {
	return s.HaveRise && s.HaveFall
}

// Radar owns the sweep servo and the ultrasonic sensor.
type Radar struct {
	board   Board
	trigger gpio.Pin
	echo    gpio.Pin

	angle     uint8
	direction int8

	sample Sample
}

// New creates a Radar. Call Init before use.
func New(board Board, trigger, echo gpio.Pin) *Radar {
	return &Radar{
		board:     board,
		trigger:   trigger,
		echo:      echo,
		angle:     StartAngle,
		direction: -1,
	}
}

// Init configures the trigger and echo pins, attaches the edge handler and
// moves the servo to its start angle.
func (r *Radar) Init() error {
	if err := r.board.SetMode(r.trigger, gpio.Output); err != nil {
		return fmt.Errorf("trigger pin: %w", err)
	}
	r.board.Write(r.trigger, false)

	if err := r.board.SetMode(r.echo, gpio.Input); err != nil {
		return fmt.Errorf("echo pin: %w", err)
	}
	if err := r.board.OnEdge(r.echo, r.HandleEdge); err != nil {
		return fmt.Errorf("echo interrupt: %w", err)
	}

	r.board.WriteAngle(r.angle)
	return nil
}

// Angle returns the current servo angle.
func (r *Radar) Angle() uint8 {
	return r.angle
}

// Sweep moves the servo one degree and returns the new angle. At either bound
// the direction reverses, tracing a triangle wave over [0, MaxAngle].
func (r *Radar) Sweep() uint8 {
	switch r.angle {
	case 0:
		r.direction = 1
	case MaxAngle:
		r.direction = -1
	}
	r.angle = uint8(int16(r.angle) + int16(r.direction))
	r.board.WriteAngle(r.angle)
	return r.angle
}

// HandleEdge records an echo edge. It runs in interrupt context.
func (r *Radar) HandleEdge(rising bool, stampUs uint32) {
	if rising {
		r.sample.Rise = stampUs
		r.sample.HaveRise = true
		return
	}
	r.sample.Fall = stampUs
	r.sample.HaveFall = true
}

// Measure triggers a new pulse and returns the distance in millimetres from
// the previous one, or NoEcho.
//
// It does not wait for the echo. Calling it more often than the sensor's
// round trip (around 500ms) yields stale or missing readings.
func (r *Radar) Measure() uint32 {
	s := r.takeSample()
	r.pulse()
	if !s.Complete() {
		return NoEcho
	}
	return Distance(s.Rise, s.Fall)
}

// takeSample reads and clears the sample with interrupts masked, so the pair
// cannot be torn by an edge arriving mid-read.
func (r *Radar) takeSample() Sample {
	cs := gpio.Critical(r.board)
	defer cs.Release()

	s := r.sample
	r.sample = Sample{}
	return s
}

func (r *Radar) pulse() {
	r.board.Write(r.trigger, false)
	r.board.BusyWaitUs(triggerSettleUs)
	r.board.Write(r.trigger, true)
	r.board.BusyWaitUs(triggerPulseUs)
	r.board.Write(r.trigger, false)
}

// Distance converts an echo pulse to millimetres: half the round trip at
// 0.343 mm/us. A fall before the rise means the microsecond clock wrapped.
func Distance(rise, fall uint32) uint32 {
	var width uint64
	switch {
	case fall < rise:
		width = uint64(math.MaxUint32) - uint64(rise) + uint64(fall)
	case fall-rise == noEchoWidth:
		return NoEcho
	default:
		width = uint64(fall - rise)
	}
	return uint32(width * 343 / 2000)
}
