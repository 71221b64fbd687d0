// Command ptt-indicator reads the talk and disable buttons, keeps the host
// informed over serial, and drives the indicator LEDs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/ptt-indicator/internal/config"
	"github.com/sweeney/ptt-indicator/internal/gpio"
	"github.com/sweeney/ptt-indicator/internal/led"
	"github.com/sweeney/ptt-indicator/internal/link"
	"github.com/sweeney/ptt-indicator/internal/logging"
	"github.com/sweeney/ptt-indicator/internal/logic"
	"github.com/sweeney/ptt-indicator/internal/metrics"
	"github.com/sweeney/ptt-indicator/internal/mqtt"
	"github.com/sweeney/ptt-indicator/internal/status"
	"github.com/sweeney/ptt-indicator/internal/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// selfTestDuration is how long the LED self-test holds its colors.
const selfTestDuration = 1500 * time.Millisecond

func main() {
	os.Exit(start(os.Args[1:]))
}

// start runs the daemon and returns the process exit code. Deferred cleanup
// has run by the time it returns.
func start(args []string) int {
	cfg, err := config.Load(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logFile, err := logging.Init(level, cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logFile.Close()

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("fatal")
		return 1
	}
	return 0
}

func run(cfg config.Config) error {
	gpioReader, err := gpio.NewRealReader(cfg.PinTalk, cfg.PinDisable)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer gpioReader.Close()

	presence, _ := link.ParsePresenceSource(cfg.Presence)
	port, err := link.OpenSerial(cfg.SerialPort, cfg.Baud, presence)
	if err != nil {
		return fmt.Errorf("init serial: %w", err)
	}
	defer port.Close()

	if cfg.PrintState {
		talk, disable, err := gpioReader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("talk: %s, disable: %s, host: %s\n",
			pressedString(talk), pressedString(disable), presentString(port.Presence()))
		return nil
	}

	strip := led.NewBuffer(cfg.LEDCount)
	if cfg.SelfTest {
		if err := led.SelfTest(strip, selfTestDuration, time.Sleep); err != nil {
			log.Warn().Err(err).Msg("led self-test failed")
		}
	}

	var publisher *mqtt.AsyncPublisher
	if cfg.Broker != "" {
		publisher = mqtt.NewAsyncPublisher(mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID), mqtt.QueueCapacity)
		defer publisher.Close()
	}

	recorder, closeMetrics, err := metrics.Dial(cfg.StatsdAddr, cfg.StatsdNamespace, cfg.StatsdTags)
	if err != nil {
		log.Warn().Err(err).Msg("metrics disabled")
		recorder = nil
	} else {
		defer closeMetrics()
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:        cfg.Tick.Milliseconds(),
		HoldMs:        cfg.Hold.Milliseconds(),
		LinkTimeoutMs: cfg.LinkTimeout.Milliseconds(),
		HeartbeatMs:   cfg.Heartbeat.Milliseconds(),
		Broker:        cfg.Broker,
		HTTPPort:      cfg.HTTPAddr,
		Version:       version,
	})
	tracker.SetLink(status.LinkInfo{Port: cfg.SerialPort, Presence: string(presence)})

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http status server listening")
	}

	d := deps{
		reader:  gpioReader,
		port:    port,
		strip:   strip,
		display: strip,
		tracker: tracker,
		metrics: recorder,
		portInfo: status.LinkInfo{
			Port:     cfg.SerialPort,
			Presence: string(presence),
		},
	}
	if publisher != nil {
		d.publisher = publisher
		d.mqttStatus = publisher
	}

	log.Info().
		Str("version", version).
		Dur("tick", cfg.Tick.Duration).
		Dur("hold", cfg.Hold.Duration).
		Str("serial", cfg.SerialPort).
		Str("broker", cfg.Broker).
		Dur("heartbeat", cfg.Heartbeat.Duration).
		Msg("started")

	ticker := time.NewTicker(cfg.Tick.Duration)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	machine := logic.NewMachine(cfg.Logic(version), time.Now())
	return runLoop(d, machine, cfg.Heartbeat.Duration, time.Now, ticker.C, sigCh)
}

// deps are the boundaries runLoop drives. display, publisher, mqttStatus,
// tracker and metrics may be nil. publisher must not block.
type deps struct {
	reader     gpio.Reader
	port       link.Port
	strip      led.Strip
	display    led.Viewer
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	metrics    *metrics.Recorder
	portInfo   status.LinkInfo
}

func runLoop(d deps, machine *logic.Machine, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	if n, err := link.Deliver(d.port, machine.Boot(d.port.Presence())); err != nil {
		log.Warn().Err(err).Msg("boot announcement failed")
	} else if n > 0 {
		log.Info().Int("lines", n).Msg("sent boot announcement")
	}

	if d.publisher != nil && d.tracker != nil {
		snap := d.tracker.Snapshot()
		startup := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := d.publisher.PublishSystem(startup); err != nil {
			log.Warn().Err(err).Msg("failed to publish startup event")
		}
	}

	for {
		select {
		case s := <-sig:
			log.Info().Str("signal", s.String()).Msg("shutting down")
			shutdown(d, signalName(s), now())
			return nil

		case <-tick:
			t := now()
			talk, disable, err := d.reader.Read()
			if err != nil {
				log.Error().Err(err).Msg("gpio read error")
				continue
			}

			presence := d.port.Presence()
			line, _ := d.port.ReadLine()

			out := machine.Process(logic.Input{
				Talk:     talk,
				Disable:  disable,
				Presence: presence,
				Line:     line,
				Time:     t,
			})

			if err := led.Commit(d.strip, out.Frame); err != nil {
				log.Error().Err(err).Msg("led commit error")
			}

			if _, err := link.Deliver(d.port, out.Messages); err != nil {
				// Fire-and-forget; the next keep-alive retries implicitly.
				log.Warn().Err(err).Msg("serial write error")
			}

			for _, event := range out.Events {
				log.Info().
					Str("event", string(event.Type)).
					Str("mode", string(event.Mode)).
					Bool("enabled", event.State.Enabled).
					Bool("muted", event.State.Muted).
					Bool("link", event.State.LinkActive).
					Msg("event")
				if d.publisher != nil {
					if err := d.publisher.Publish(event); err != nil {
						log.Warn().Err(err).Msg("publish error")
					}
				}
			}
			d.metrics.Record(out.Events)

			updateTracker(d, machine, out, presence)

			if hb := machine.CheckHeartbeat(t, heartbeat); hb != nil {
				log.Info().
					Dur("uptime", hb.Uptime).
					Int("ptt_pressed", hb.Counts.PTTPressed).
					Int("toggles", hb.Counts.Toggles).
					Int("timeouts", hb.Counts.Timeouts).
					Msg("heartbeat")
				if d.publisher != nil {
					hbEvent := mqtt.SystemEvent{Timestamp: hb.Timestamp, Event: "HEARTBEAT"}
					if d.tracker != nil {
						hbEvent.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", "")
					}
					if err := d.publisher.PublishSystem(hbEvent); err != nil {
						log.Warn().Err(err).Msg("heartbeat publish error")
					}
				}
			}
		}
	}
}

func updateTracker(d deps, machine *logic.Machine, out logic.Output, presence bool) {
	if d.tracker == nil {
		return
	}
	st := machine.State()
	frame := out.Frame
	if d.display != nil {
		frame = led.Shown(d.display, out.Frame)
	}
	d.tracker.Update(st.Device, st.Mode(), frame, machine.EventCountsSnapshot())
	info := d.portInfo
	info.Present = presence
	d.tracker.SetLink(info)
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

func shutdown(d deps, reason string, t time.Time) {
	if err := led.Clear(d.strip); err != nil {
		log.Warn().Err(err).Msg("led clear error")
	}
	if d.publisher == nil {
		return
	}
	event := mqtt.SystemEvent{
		Timestamp: t,
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if d.tracker != nil {
		if d.mqttStatus != nil {
			d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
		}
		event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", reason)
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		log.Warn().Err(err).Msg("failed to publish shutdown event")
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

func pressedString(pressed bool) string {
	if pressed {
		return "PRESSED"
	}
	return "RELEASED"
}

func presentString(present bool) string {
	if present {
		return "PRESENT"
	}
	return "ABSENT"
}
