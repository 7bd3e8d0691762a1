//go:build tinygo && rp2040

// Command radar-pico runs the radar on a Raspberry Pi Pico.
//
//	tinygo flash -target=pico ./cmd/radar-pico
package main

import (
	"machine"
	"time"

	"github.com/sweeney/radar-sensor/internal/gpio"
	"github.com/sweeney/radar-sensor/internal/radar"
	"github.com/sweeney/radar-sensor/internal/sched"
)

// Pico wiring. Each PWM output sits on the slice that owns its pin.
var pins = radar.Pins{
	Trigger:  gpio.Pin(machine.GP2),
	Echo:     gpio.Pin(machine.GP3),
	Presence: gpio.Pin(machine.GP4),
	Red:      gpio.Pin(machine.GP18), // PWM1 A
	Green:    gpio.Pin(machine.GP19), // PWM1 B
	Blue:     gpio.Pin(machine.GP20),
	Buzzer:   gpio.Pin(machine.GP15), // PWM7 B
}

const pinServo = gpio.Pin(machine.GP16) // PWM0 A

func main() {
	board, err := gpio.NewMachineBoard(gpio.MachineConfig{
		LED: map[gpio.Pin]gpio.PWMPeripheral{
			pins.Red:   machine.PWM1,
			pins.Green: machine.PWM1,
		},
		ServoPWM:  machine.PWM0,
		ServoPin:  pinServo,
		BuzzerPWM: machine.PWM7,
		BuzzerPin: pins.Buzzer,
	})
	if err != nil {
		halt("board", err)
	}

	ctrl, err := radar.Build(board, pins, radar.DefaultConfig())
	if err != nil {
		halt("build", err)
	}
	ctrl.OnTransition = func(tr radar.Transition) {
		println("state:", tr.From.String(), "->", tr.To.String(), tr.Input)
	}
	ctrl.Start()

	for {
		due := ctrl.Tick()
		time.Sleep(sched.SleepFor(due, board.NowMs()))
	}
}

// halt reports err on the serial console forever; there is nothing to
// restart into.
func halt(what string, err error) {
	for {
		println(what+":", err.Error())
		time.Sleep(5 * time.Second)
	}
}
