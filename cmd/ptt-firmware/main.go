//go:build tinygo

// Command ptt-firmware is the TinyGo build of the indicator for the RP2040
// board: buttons on GPIO, SK6805 chain on one data pin, host link over USB CDC.
package main

import (
	"machine"
	"time"

	"github.com/sweeney/ptt-indicator/internal/led"
	"github.com/sweeney/ptt-indicator/internal/link"
	"github.com/sweeney/ptt-indicator/internal/logic"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	pinTalk    = machine.GP4
	pinDisable = machine.GP1
	pinLEDs    = machine.GP0

	tick             = 10 * time.Millisecond
	selfTestDuration = 1500 * time.Millisecond
)

func main() {
	machine.Serial.Configure(machine.UARTConfig{BaudRate: link.DefaultBaud})

	talk := input(pinTalk)
	disable := input(pinDisable)

	strip := led.NewWS2812(pinLEDs, led.DefaultCount)
	if err := led.SelfTest(strip, selfTestDuration, time.Sleep); err != nil {
		println("self-test:", err.Error())
	}

	port := newCDCPort(machine.Serial)

	cfg := logic.DefaultConfig()
	cfg.Version = version
	m := logic.NewMachine(cfg, time.Now())
	if _, err := link.Deliver(port, m.Boot(port.Presence())); err != nil {
		println("boot announcement:", err.Error())
	}

	ticker := time.NewTicker(tick)
	for range ticker.C {
		line, _ := port.ReadLine()
		out := m.Process(logic.Input{
			Talk:     !talk.Get(),
			Disable:  !disable.Get(),
			Presence: port.Presence(),
			Line:     line,
			Time:     time.Now(),
		})
		if err := led.Commit(strip, out.Frame); err != nil {
			println("led commit:", err.Error())
		}
		if _, err := link.Deliver(port, out.Messages); err != nil {
			println("serial write:", err.Error())
		}
	}
}

// input configures an active-low button with the internal pull-up.
func input(p machine.Pin) machine.Pin {
	p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return p
}
