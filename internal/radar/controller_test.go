package radar

import (
	"testing"
	"time"

	"github.com/sweeney/radar-sensor/internal/actuator"
	"github.com/sweeney/radar-sensor/internal/gpio"
	"github.com/sweeney/radar-sensor/internal/sched"
	"github.com/sweeney/radar-sensor/internal/sonar"
)

type fakeClock struct{ ms uint32 }

func (c *fakeClock) NowMs() uint32 { return c.ms }

type fakeSensor struct {
	angle    uint8
	readings []uint32
	sweeps   int
	measures int
}

func (s *fakeSensor) Angle() uint8 { return s.angle }

func (s *fakeSensor) Sweep() uint8 {
	s.sweeps++
	s.angle++
	return s.angle
}

func (s *fakeSensor) Measure() uint32 {
	s.measures++
	if len(s.readings) == 0 {
		return sonar.NoEcho
	}
	d := s.readings[0]
	s.readings = s.readings[1:]
	return d
}

type fakeIndicator struct {
	color  actuator.Color
	step   int8
	pulses int
}

func (i *fakeIndicator) SetColor(c actuator.Color) { i.color = c }
func (i *fakeIndicator) SetPulse(step int8)        { i.step = step }
func (i *fakeIndicator) Pulse()                    { i.pulses++ }

type fakeAlarm struct {
	hz       uint32
	silences int
}

func (a *fakeAlarm) Sound(hz uint32) { a.hz = hz }
func (a *fakeAlarm) Silence() {
	a.hz = 0
	a.silences++
}

type fakePresence struct{ present bool }

func (p *fakePresence) Present() bool { return p.present }

type rig struct {
	c           *Controller
	clock       *fakeClock
	sensor      *fakeSensor
	indicator   *fakeIndicator
	alarm       *fakeAlarm
	presence    *fakePresence
	transitions []Transition
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		clock:     &fakeClock{ms: 100000},
		sensor:    &fakeSensor{angle: 90},
		indicator: &fakeIndicator{color: actuator.Off},
		alarm:     &fakeAlarm{},
		presence:  &fakePresence{},
	}
	c, err := New(DefaultConfig(), Parts{
		Clock:     r.clock,
		Sensor:    r.sensor,
		Indicator: r.indicator,
		Alarm:     r.alarm,
		Presence:  r.presence,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.OnTransition = func(tr Transition) { r.transitions = append(r.transitions, tr) }
	c.Start()
	r.c = c
	return r
}

// tasks lists the registered actions in id order.
func (r *rig) tasks() []sched.ActionID {
	var ids []sched.ActionID
	for id := sched.ActionID(0); id < sched.MaxTasks; id++ {
		if r.c.Scheduled(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

func sameTasks(got, want []sched.ActionID) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestStartEntersStandby(t *testing.T) {
	r := newRig(t)

	if r.c.State() != Standby {
		t.Errorf("state: got %v, want standby", r.c.State())
	}
	want := []sched.ActionID{ActionPresence, ActionPulse}
	if got := r.tasks(); !sameTasks(got, want) {
		t.Errorf("tasks: got %v, want %v", got, want)
	}
	if r.indicator.color != actuator.Green {
		t.Errorf("indicator: got %v, want green", r.indicator.color)
	}
	if r.indicator.step != 5 {
		t.Errorf("pulse step: got %d, want 5", r.indicator.step)
	}
	if r.c.sched.Period(ActionPresence) != 250 || r.c.sched.Period(ActionPulse) != 33 {
		t.Errorf("periods: presence %d pulse %d",
			r.c.sched.Period(ActionPresence), r.c.sched.Period(ActionPulse))
	}
}

func TestStartClearsPreviousTasks(t *testing.T) {
	r := newRig(t)
	r.c.Update(1)
	r.c.Update(10)

	r.c.Start()
	want := []sched.ActionID{ActionPresence, ActionPulse}
	if got := r.tasks(); !sameTasks(got, want) {
		t.Errorf("tasks: got %v, want %v", got, want)
	}
	if r.c.State() != Standby {
		t.Errorf("state: got %v", r.c.State())
	}
}

func TestStandbyIgnoresAbsence(t *testing.T) {
	r := newRig(t)
	r.c.Update(0)

	if r.c.State() != Standby {
		t.Errorf("state: got %v, want standby", r.c.State())
	}
	if len(r.transitions) != 0 {
		t.Errorf("unexpected transitions: %v", r.transitions)
	}
}

func TestStandbyToSensing(t *testing.T) {
	r := newRig(t)
	r.c.Update(1)

	if r.c.State() != Sensing {
		t.Fatalf("state: got %v, want sensing", r.c.State())
	}
	want := []sched.ActionID{ActionSweep, ActionPing}
	if got := r.tasks(); !sameTasks(got, want) {
		t.Errorf("tasks: got %v, want %v", got, want)
	}
	if len(r.transitions) != 1 {
		t.Fatalf("transitions: got %v", r.transitions)
	}
	tr := r.transitions[0]
	if tr.From != Standby || tr.To != Sensing || tr.At != r.clock.ms || tr.Input != 1 {
		t.Errorf("transition: got %+v", tr)
	}
}

func TestEnteringSensingStartsTimer(t *testing.T) {
	r := newRig(t)
	r.c.Update(1)

	// A far reading straight after presence must not fall back to standby.
	r.clock.ms += 1000
	r.c.Update(sonar.NoEcho)
	if r.c.State() != Sensing {
		t.Errorf("state: got %v, want sensing", r.c.State())
	}
}

func TestSensingBands(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name  string
		mm    uint32
		color actuator.Color
		state State
	}{
		{"inside warning", cfg.WarningMM - 1, actuator.Red, Warning},
		{"at warning", cfg.WarningMM, actuator.Red, Sensing},
		{"below alert", cfg.AlertMM - 1, actuator.Red, Sensing},
		{"at alert", cfg.AlertMM, actuator.Yellow, Sensing},
		{"below caution", cfg.CautionMM - 1, actuator.Yellow, Sensing},
		{"at caution", cfg.CautionMM, actuator.Green, Sensing},
		{"no echo", sonar.NoEcho, actuator.Green, Sensing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			r.c.Update(1)
			r.c.Update(tt.mm)

			if r.indicator.color != tt.color {
				t.Errorf("indicator: got %v, want %v", r.indicator.color, tt.color)
			}
			if r.c.State() != tt.state {
				t.Errorf("state: got %v, want %v", r.c.State(), tt.state)
			}
		})
	}
}

func TestInRangeRefreshesTimer(t *testing.T) {
	r := newRig(t)
	r.c.Update(1)

	r.clock.ms += 20000
	r.c.Update(400)
	if r.c.SinceInRange() != 0 {
		t.Errorf("SinceInRange: got %d, want 0", r.c.SinceInRange())
	}

	r.clock.ms += 20000
	r.c.Update(sonar.NoEcho)
	if r.c.State() != Sensing {
		t.Errorf("state: got %v, want sensing", r.c.State())
	}
}

func TestSensingTimesOut(t *testing.T) {
	r := newRig(t)
	r.c.Update(1)

	timeout := ms(DefaultConfig().StandbyTimeout)
	r.clock.ms += timeout - 1
	r.c.Update(1000)
	if r.c.State() != Sensing {
		t.Fatalf("state before timeout: got %v", r.c.State())
	}

	r.clock.ms++
	r.c.Update(1000)
	if r.c.State() != Standby {
		t.Fatalf("state after timeout: got %v, want standby", r.c.State())
	}
	want := []sched.ActionID{ActionPresence, ActionPulse}
	if got := r.tasks(); !sameTasks(got, want) {
		t.Errorf("tasks: got %v, want %v", got, want)
	}
	if r.indicator.color != actuator.Green || r.indicator.step != 5 {
		t.Errorf("indicator: got %v step %d", r.indicator.color, r.indicator.step)
	}
}

func TestSensingTimerAcrossClockWrap(t *testing.T) {
	r := newRig(t)
	r.clock.ms = ^uint32(0) - 1000
	r.c.Update(1)

	r.clock.ms += 5000 // wraps
	r.c.Update(sonar.NoEcho)
	if r.c.State() != Sensing {
		t.Errorf("state: got %v, want sensing", r.c.State())
	}
	if got := r.c.SinceInRange(); got != 5000 {
		t.Errorf("SinceInRange: got %d, want 5000", got)
	}
}

func TestSensingToWarning(t *testing.T) {
	r := newRig(t)
	r.c.Update(1)
	r.clock.ms += 5000
	r.c.Update(DefaultConfig().WarningMM - 1)

	if r.c.State() != Warning {
		t.Fatalf("state: got %v, want warning", r.c.State())
	}
	want := []sched.ActionID{ActionSweep, ActionPing, ActionPulse}
	if got := r.tasks(); !sameTasks(got, want) {
		t.Errorf("tasks: got %v, want %v", got, want)
	}
	if r.c.sched.Period(ActionPulse) != 10 {
		t.Errorf("pulse period: got %d, want 10", r.c.sched.Period(ActionPulse))
	}
	if r.alarm.hz != 500 {
		t.Errorf("alarm: got %d Hz, want 500", r.alarm.hz)
	}
	if r.indicator.color != actuator.Red || r.indicator.step != 12 {
		t.Errorf("indicator: got %v step %d", r.indicator.color, r.indicator.step)
	}
	if r.c.SinceInRange() != 0 {
		t.Errorf("timer not recorded on warning entry")
	}
}

func TestWarningHoldsWhileClose(t *testing.T) {
	r := newRig(t)
	r.c.Update(1)
	r.c.Update(10)
	r.c.Update(0)
	r.c.Update(DefaultConfig().WarningMM - 1)

	if r.c.State() != Warning {
		t.Errorf("state: got %v, want warning", r.c.State())
	}
	if r.alarm.silences != 0 {
		t.Errorf("alarm silenced %d times", r.alarm.silences)
	}
}

func TestWarningToSensing(t *testing.T) {
	r := newRig(t)
	r.c.Update(1)
	r.c.Update(10)
	r.c.Update(DefaultConfig().WarningMM)

	if r.c.State() != Sensing {
		t.Fatalf("state: got %v, want sensing", r.c.State())
	}
	if r.alarm.hz != 0 || r.alarm.silences != 1 {
		t.Errorf("alarm: %d Hz, %d silences", r.alarm.hz, r.alarm.silences)
	}
	want := []sched.ActionID{ActionSweep, ActionPing}
	if got := r.tasks(); !sameTasks(got, want) {
		t.Errorf("tasks: got %v, want %v", got, want)
	}
}

func TestWarningExitKeepsPingCadence(t *testing.T) {
	r := newRig(t)
	r.c.Update(1)
	r.sensor.readings = []uint32{10}

	// Run until the ping fires and enters Warning.
	for i := 0; i < 4 && r.c.State() != Warning; i++ {
		r.c.Tick()
	}
	if r.c.State() != Warning {
		t.Fatalf("state: got %v, want warning", r.c.State())
	}
	pingAt := r.c.sched.Period(ActionPing)

	r.clock.ms += 100
	r.c.Update(1000)
	if r.c.State() != Sensing {
		t.Fatalf("state: got %v, want sensing", r.c.State())
	}
	if pingAt != 550 || r.c.sched.Period(ActionPing) != 550 {
		t.Errorf("ping period changed: %d", r.c.sched.Period(ActionPing))
	}

	// Re-entering Sensing must not make the ping due again immediately.
	measures := r.sensor.measures
	for i := 0; i < 3; i++ {
		r.c.Tick()
	}
	if r.sensor.measures != measures {
		t.Errorf("ping re-ran %d times within its period", r.sensor.measures-measures)
	}
}

func TestFullCycle(t *testing.T) {
	r := newRig(t)
	cfg := DefaultConfig()

	r.c.Update(1)
	r.c.Update(cfg.WarningMM - 1)
	r.c.Update(cfg.WarningMM)
	r.clock.ms += ms(cfg.StandbyTimeout)
	r.c.Update(sonar.NoEcho)

	want := []State{Sensing, Warning, Sensing, Standby}
	if len(r.transitions) != len(want) {
		t.Fatalf("transitions: got %v", r.transitions)
	}
	for i, s := range want {
		if r.transitions[i].To != s {
			t.Errorf("transition %d: got %v, want %v", i, r.transitions[i].To, s)
		}
	}
	counts := r.c.Snapshot().Counts
	if counts.Standby != 2 || counts.Sensing != 2 || counts.Warning != 1 {
		t.Errorf("counts: got %+v", counts)
	}
}

func TestTickRunsPresenceAndPulse(t *testing.T) {
	r := newRig(t)

	r.c.Tick()
	r.c.Tick()
	if r.indicator.pulses != 1 {
		t.Errorf("pulses: got %d, want 1", r.indicator.pulses)
	}
	if r.c.State() != Standby {
		t.Errorf("state: got %v, want standby", r.c.State())
	}

	r.presence.present = true
	r.clock.ms += 250
	for i := 0; i < 10 && r.c.State() == Standby; i++ {
		r.c.Tick()
	}
	if r.c.State() != Sensing {
		t.Errorf("state: got %v, want sensing", r.c.State())
	}
}

func TestTickSweepsAndPings(t *testing.T) {
	r := newRig(t)
	r.c.Update(1)
	r.sensor.readings = []uint32{450}

	r.c.Tick()
	r.c.Tick()
	if r.sensor.sweeps != 1 || r.sensor.measures != 1 {
		t.Errorf("sweeps %d measures %d, want 1 and 1", r.sensor.sweeps, r.sensor.measures)
	}
	if r.indicator.color != actuator.Yellow {
		t.Errorf("indicator: got %v, want yellow", r.indicator.color)
	}

	snap := r.c.Snapshot()
	if !snap.HaveDistance || snap.LastDistance != 450 || snap.Angle != 91 {
		t.Errorf("snapshot: got %+v", snap)
	}
	if snap.Counts.Pings != 1 || snap.Tasks != 2 {
		t.Errorf("snapshot: got %+v", snap)
	}
}

func TestTickEmpty(t *testing.T) {
	r := newRig(t)
	r.c.Stop()

	if got := r.c.Tick(); got != sched.None {
		t.Errorf("Tick: got %d, want None", got)
	}
}

func TestStop(t *testing.T) {
	r := newRig(t)
	r.c.Update(1)
	r.c.Update(10)
	r.c.Stop()

	if len(r.tasks()) != 0 {
		t.Errorf("tasks left: %v", r.tasks())
	}
	if r.alarm.hz != 0 {
		t.Errorf("alarm still sounding at %d Hz", r.alarm.hz)
	}
	if r.indicator.color != actuator.Off {
		t.Errorf("indicator: got %v, want off", r.indicator.color)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	parts := Parts{
		Clock:     &fakeClock{},
		Sensor:    &fakeSensor{},
		Indicator: &fakeIndicator{},
		Alarm:     &fakeAlarm{},
		Presence:  &fakePresence{},
	}

	cfg := DefaultConfig()
	cfg.AlertMM = cfg.CautionMM
	if _, err := New(cfg, parts); err == nil {
		t.Error("expected error for non-ascending bands")
	}

	cfg = DefaultConfig()
	cfg.PingPeriod = 0
	if _, err := New(cfg, parts); err == nil {
		t.Error("expected error for zero period")
	}

	parts.Alarm = nil
	if _, err := New(DefaultConfig(), parts); err == nil {
		t.Error("expected error for missing alarm")
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		Standby:  "standby",
		Sensing:  "sensing",
		Warning:  "warning",
		State(9): "State(9)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestPIR(t *testing.T) {
	board := gpio.NewFakeBoard()
	pin := gpio.Pin(gpio.DefaultPinPresence)
	p := NewPIR(board, pin)
	if err := p.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if board.Modes[pin] != gpio.Input {
		t.Error("presence pin should be an input")
	}
	if p.Present() {
		t.Error("expected absent")
	}
	board.Inputs[pin] = true
	if !p.Present() {
		t.Error("expected present")
	}
}

func TestConfigPeriodsInMilliseconds(t *testing.T) {
	cfg := DefaultConfig()
	if ms(cfg.SweepPeriod) != 25 || ms(cfg.PingPeriod) != 550 {
		t.Errorf("periods: sweep %d ping %d", ms(cfg.SweepPeriod), ms(cfg.PingPeriod))
	}
	if ms(cfg.StandbyTimeout) != uint32(30*time.Second/time.Millisecond) {
		t.Errorf("timeout: %d", ms(cfg.StandbyTimeout))
	}
}
