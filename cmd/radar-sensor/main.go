// Command radar-sensor sweeps an ultrasonic sensor across a half circle and
// warns, with an RGB indicator and a buzzer, when something comes too close.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/radar-sensor/internal/gpio"
	"github.com/sweeney/radar-sensor/internal/radar"
	"github.com/sweeney/radar-sensor/internal/sched"
	"github.com/sweeney/radar-sensor/internal/sonar"
	"github.com/sweeney/radar-sensor/internal/status"
)

func main() {
	def := radar.DefaultConfig()

	chip := flag.String("chip", "gpiochip0", "GPIO character device")
	pinTrigger := flag.Int("pin-trigger", gpio.DefaultPinTrigger, "BCM pin for the sensor trigger")
	pinEcho := flag.Int("pin-echo", gpio.DefaultPinEcho, "BCM pin for the sensor echo")
	pinPresence := flag.Int("pin-presence", gpio.DefaultPinPresence, "BCM pin for the PIR motion sensor")
	pinRed := flag.Int("pin-red", gpio.DefaultPinRed, "BCM pin for the red LED channel")
	pinGreen := flag.Int("pin-green", gpio.DefaultPinGreen, "BCM pin for the green LED channel")
	pinBlue := flag.Int("pin-blue", gpio.DefaultPinBlue, "BCM pin for the blue LED channel")
	pinBuzzer := flag.Int("pin-buzzer", gpio.DefaultPinBuzzer, "BCM pin for the buzzer")
	pwmRed := flag.String("pwm-red", "off", `sysfs PWM for the red channel ("chip:channel" or "off")`)
	pwmGreen := flag.String("pwm-green", "off", "sysfs PWM for the green channel")
	pwmBuzzer := flag.String("pwm-buzzer", "off", "sysfs PWM for a passive buzzer")
	pwmServo := flag.String("pwm-servo", "0:0", "sysfs PWM for the sweep servo")
	warningMM := flag.Uint("warning-mm", uint(def.WarningMM), "Alarm below this distance (mm)")
	alertMM := flag.Uint("alert-mm", uint(def.AlertMM), "Red indicator below this distance (mm)")
	cautionMM := flag.Uint("caution-mm", uint(def.CautionMM), "Yellow indicator below this distance (mm)")
	timeout := flag.Duration("standby-timeout", def.StandbyTimeout, "Return to standby after nothing in range for this long")
	alarmHz := flag.Uint("alarm-hz", uint(def.AlarmHz), "Buzzer frequency")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	statusFile := flag.String("status-file", "", "Write JSON status here on every heartbeat and transition (empty to disable)")
	printOnly := flag.Bool("print-distance", false, "Print one distance reading and exit")

	flag.Parse()

	cfg := def
	cfg.WarningMM = uint32(*warningMM)
	cfg.AlertMM = uint32(*alertMM)
	cfg.CautionMM = uint32(*cautionMM)
	cfg.StandbyTimeout = *timeout
	cfg.AlarmHz = uint32(*alarmHz)

	p := radar.Pins{
		Trigger:  gpio.Pin(*pinTrigger),
		Echo:     gpio.Pin(*pinEcho),
		Presence: gpio.Pin(*pinPresence),
		Red:      gpio.Pin(*pinRed),
		Green:    gpio.Pin(*pinGreen),
		Blue:     gpio.Pin(*pinBlue),
		Buzzer:   gpio.Pin(*pinBuzzer),
	}

	boardCfg, err := boardConfig(*chip, map[gpio.Pin]string{
		p.Red:    *pwmRed,
		p.Green:  *pwmGreen,
		p.Buzzer: *pwmBuzzer,
	}, *pwmServo)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(boardCfg, p, cfg, *heartbeat, *statusFile, *printOnly); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// boardConfig parses the PWM flags. Pins whose flag is "off" stay digital.
func boardConfig(chip string, pwm map[gpio.Pin]string, servo string) (gpio.RealConfig, error) {
	cfg := gpio.RealConfig{Chip: chip, PWM: make(map[gpio.Pin]gpio.PWMChannel)}
	for pin, s := range pwm {
		ch, err := gpio.ParsePWMChannel(s)
		if err != nil {
			return cfg, fmt.Errorf("pin %d: %w", pin, err)
		}
		if ch.Valid() {
			cfg.PWM[pin] = ch
		}
	}
	ch, err := gpio.ParsePWMChannel(servo)
	if err != nil {
		return cfg, fmt.Errorf("servo: %w", err)
	}
	cfg.Servo = ch
	return cfg, nil
}

func run(boardCfg gpio.RealConfig, p radar.Pins, cfg radar.Config, heartbeat time.Duration, statusFile string, printOnly bool) error {
	board, err := gpio.NewRealBoard(boardCfg)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer board.Close()

	if printOnly {
		sensor := sonar.New(board, p.Trigger, p.Echo)
		if err := sensor.Init(); err != nil {
			return fmt.Errorf("init sonar: %w", err)
		}
		return printDistance(sensor, time.Sleep, os.Stdout)
	}

	ctrl, err := radar.Build(board, p, cfg)
	if err != nil {
		return err
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		WarningMM:        cfg.WarningMM,
		AlertMM:          cfg.AlertMM,
		CautionMM:        cfg.CautionMM,
		StandbyTimeoutMs: cfg.StandbyTimeout.Milliseconds(),
		HeartbeatMs:      heartbeat.Milliseconds(),
		Chip:             boardCfg.Chip,
	})

	log.Printf("started: chip=%s servo=%s warning=%dmm alert=%dmm caution=%dmm timeout=%v heartbeat=%v",
		boardCfg.Chip, boardCfg.Servo, cfg.WarningMM, cfg.AlertMM, cfg.CautionMM, cfg.StandbyTimeout, heartbeat)
	log.Printf("%s", status.FormatStatusEvent(tracker.Snapshot(), "STARTUP", ""))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctrl, board, tracker, heartbeat, statusFile, time.Now, time.After, sigCh)
}

// droppedCounter is implemented by boards that can lose echo edges.
type droppedCounter interface {
	DroppedEdges() uint32
}

// runLoop drives the controller until a signal arrives. after is time.After
// in production; tests substitute a simulated clock.
func runLoop(ctrl *radar.Controller, clock gpio.Clock, tracker *status.Tracker, heartbeat time.Duration, statusFile string, now func() time.Time, after func(time.Duration) <-chan time.Time, sig <-chan os.Signal) error {
	dropped, _ := clock.(droppedCounter)

	publish := func(event, reason string) {
		if dropped != nil {
			tracker.SetDroppedEdges(dropped.DroppedEdges())
		}
		snap := tracker.Snapshot()
		if event != "" {
			log.Printf("%s", status.FormatStatusEvent(snap, event, reason))
		}
		if statusFile == "" {
			return
		}
		if err := status.WriteFile(statusFile, snap); err != nil {
			log.Printf("status file: %v", err)
		}
	}

	transitioned := false
	ctrl.OnTransition = func(tr radar.Transition) {
		log.Printf("state: %s -> %s (%s)", tr.From, tr.To, reading(tr))
		transitioned = true
	}
	ctrl.Start()
	tracker.Update(ctrl.Snapshot())
	lastHeartbeat := now()

	for {
		due := ctrl.Tick()
		tracker.Update(ctrl.Snapshot())

		if transitioned {
			transitioned = false
			publish("", "")
		}

		if t := now(); heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
			lastHeartbeat = t
			snap := ctrl.Snapshot()
			log.Printf("heartbeat: state=%s standby=%d sensing=%d warning=%d pings=%d",
				snap.State, snap.Counts.Standby, snap.Counts.Sensing, snap.Counts.Warning, snap.Counts.Pings)
			publish("HEARTBEAT", "")
		}

		var wait <-chan time.Time
		if ctrl.Snapshot().Tasks > 0 {
			wait = after(sched.SleepFor(due, clock.NowMs()))
		}

		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			ctrl.Stop()
			tracker.Update(ctrl.Snapshot())
			publish("SHUTDOWN", signalName(s))
			return nil
		case <-wait:
		}
	}
}

func reading(tr radar.Transition) string {
	if tr.From == radar.Standby {
		return "presence"
	}
	if tr.Input == sonar.NoEcho {
		return "no echo"
	}
	return fmt.Sprintf("%dmm", tr.Input)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// settle is how long to wait for an echo before reading it back.
const settle = 600 * time.Millisecond

// printDistance primes the pipelined sensor, waits for the echo and prints
// the reading.
func printDistance(sensor *sonar.Radar, sleep func(time.Duration), w io.Writer) error {
	sensor.Measure()
	sleep(settle)
	d := sensor.Measure()
	if d == sonar.NoEcho {
		_, err := fmt.Fprintln(w, "distance: no echo")
		return err
	}
	_, err := fmt.Fprintf(w, "distance: %d mm\n", d)
	return err
}
