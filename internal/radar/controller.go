// Package radar is the controller state machine. It owns the scheduler and
// moves between Standby, Sensing and Warning on presence and distance
// readings.
package radar

import (
	"errors"
	"fmt"

	"github.com/sweeney/radar-sensor/internal/actuator"
	"github.com/sweeney/radar-sensor/internal/gpio"
	"github.com/sweeney/radar-sensor/internal/sched"
)

// Indicator colours per distance band.
const (
	calm    = actuator.Green
	caution = actuator.Yellow
	alert   = actuator.Red
)

// Sensor sweeps and ranges. *sonar.Radar implements it.
type Sensor interface {
	Angle() uint8
	Sweep() uint8
	Measure() uint32
}

// Indicator is the pulsing status light. *actuator.LED implements it.
type Indicator interface {
	SetColor(c actuator.Color)
	SetPulse(step int8)
	Pulse()
}

// Alarm is the audible warning. *actuator.Buzzer implements it.
type Alarm interface {
	Sound(hz uint32)
	Silence()
}

// Presence reports whether the motion sensor currently sees someone.
type Presence interface {
	Present() bool
}

// Clock is the millisecond time source shared with the scheduler.
type Clock interface {
	NowMs() uint32
}

// Transition records a state change.
type Transition struct {
	From, To State
	// At is the controller clock in milliseconds.
	At uint32
	// Input is the reading that caused the change: 1 for presence, otherwise
	// a distance in millimetres.
	Input uint32
}

// Counts tracks transitions into each state since Start.
type Counts struct {
	Standby int
	Sensing int
	Warning int
	Pings   int
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	State        State
	Angle        uint8
	LastDistance uint32
	// HaveDistance is false until the first ping.
	HaveDistance bool
	Tasks        int
	Counts       Counts
}

// Controller is the radar state machine. It is driven from a single goroutine
// by Tick; it is not safe for concurrent use.
type Controller struct {
	cfg       Config
	clock     Clock
	sensor    Sensor
	indicator Indicator
	alarm     Alarm
	presence  Presence
	sched     *sched.Scheduler

	state        State
	inRangeAt    uint32
	lastDistance uint32
	haveDistance bool
	counts       Counts

	// OnTransition, if set, is called after every state change once the new
	// state has started.
	OnTransition func(Transition)
}

// Parts are the devices a Controller drives.
type Parts struct {
	Clock     Clock
	Sensor    Sensor
	Indicator Indicator
	Alarm     Alarm
	Presence  Presence
}

// New creates a Controller. Call Start to enter Standby.
func New(cfg Config, p Parts) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p.Clock == nil || p.Sensor == nil || p.Indicator == nil || p.Alarm == nil || p.Presence == nil {
		return nil, errors.New("radar: every device in Parts is required")
	}
	c := &Controller{
		cfg:       cfg,
		clock:     p.Clock,
		sensor:    p.Sensor,
		indicator: p.Indicator,
		alarm:     p.Alarm,
		presence:  p.Presence,
		state:     Standby,
	}
	c.sched = sched.New(p.Clock.NowMs, func(id sched.ActionID) { runAction(c, id) })
	return c, nil
}

// Start clears every task and enters Standby.
func (c *Controller) Start() {
	c.sched.Clear()
	c.counts = Counts{}
	c.state = Standby
	c.counts.Standby++
	Standby.start(c)
}

// Stop clears every task, silences the alarm and turns the indicator off.
func (c *Controller) Stop() {
	c.sched.Clear()
	c.alarm.Silence()
	c.SetIndicator(actuator.Off)
}

// Tick runs the next due action and returns when the following one is due,
// or sched.None when nothing is scheduled.
func (c *Controller) Tick() uint32 {
	return c.sched.ExecuteNext()
}

// Update feeds a reading to the current state.
func (c *Controller) Update(x uint32) {
	c.state.update(c, x)
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Config returns the controller's tuning.
func (c *Controller) Config() Config {
	return c.cfg
}

// Scheduled reports whether action id is registered.
func (c *Controller) Scheduled(id sched.ActionID) bool {
	return c.sched.Registered(id)
}

// Move steps the sweep servo one degree.
func (c *Controller) Move() uint8 {
	return c.sensor.Sweep()
}

// Ping triggers a measurement and returns the previous cycle's distance.
func (c *Controller) Ping() uint32 {
	d := c.sensor.Measure()
	c.lastDistance = d
	c.haveDistance = true
	c.counts.Pings++
	return d
}

// SetIndicator switches the indicator colour.
func (c *Controller) SetIndicator(color actuator.Color) {
	c.indicator.SetColor(color)
}

// PulseIndicator steps the indicator brightness.
func (c *Controller) PulseIndicator() {
	c.indicator.Pulse()
}

// CheckPresence reads the motion sensor, returning 1 when someone is there.
func (c *Controller) CheckPresence() uint32 {
	if c.presence.Present() {
		return 1
	}
	return 0
}

// MarkInRange records now as the last time something was within range.
func (c *Controller) MarkInRange() {
	c.inRangeAt = c.clock.NowMs()
}

// SinceInRange returns milliseconds since MarkInRange, correct across one
// clock wrap.
func (c *Controller) SinceInRange() uint32 {
	return c.clock.NowMs() - c.inRangeAt
}

// Snapshot returns the controller's current view.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		State:        c.state,
		Angle:        c.sensor.Angle(),
		LastDistance: c.lastDistance,
		HaveDistance: c.haveDistance,
		Tasks:        c.sched.Len(),
		Counts:       c.counts,
	}
}

func (c *Controller) transition(to State, input uint32) {
	from := c.state
	c.state = to
	switch to {
	case Standby:
		c.counts.Standby++
	case Sensing:
		c.counts.Sensing++
	case Warning:
		c.counts.Warning++
	}
	to.start(c)
	if c.OnTransition != nil {
		c.OnTransition(Transition{From: from, To: to, At: c.clock.NowMs(), Input: input})
	}
}

// runAction dispatches a scheduled action.
func runAction(c *Controller, id sched.ActionID) {
	switch id {
	case ActionSweep:
		c.Move()
	case ActionPing:
		c.Update(c.Ping())
	case ActionPresence:
		c.Update(c.CheckPresence())
	case ActionPulse:
		c.PulseIndicator()
	}
}

// PIR is a digital motion sensor on one input pin.
type PIR struct {
	pins gpio.Pins
	pin  gpio.Pin
}

// NewPIR creates a PIR. Call Init before use.
func NewPIR(pins gpio.Pins, pin gpio.Pin) *PIR {
	return &PIR{pins: pins, pin: pin}
}

// Init configures the pin as an input.
func (p *PIR) Init() error {
	if err := p.pins.SetMode(p.pin, gpio.Input); err != nil {
		return fmt.Errorf("presence pin: %w", err)
	}
	return nil
}

// Present reports whether the sensor output is high.
func (p *PIR) Present() bool {
	return p.pins.Read(p.pin)
}
