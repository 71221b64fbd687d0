// Command ptt-listen runs on the host. It finds the PTT indicator on USB and
// keeps the system microphone mute in step with the talk button.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial/enumerator"

	"github.com/sweeney/ptt-indicator/internal/config"
	"github.com/sweeney/ptt-indicator/internal/host"
	"github.com/sweeney/ptt-indicator/internal/link"
	"github.com/sweeney/ptt-indicator/internal/logging"
)

const (
	scanInterval   = time.Second
	pollInterval   = time.Second
	readInterval   = 20 * time.Millisecond
	startupTimeout = 5 * time.Second
)

var errNoStartup = errors.New("no startup line received")

func main() {
	portName := flag.String("port", "", "Serial device (empty to find by USB product name)")
	baud := flag.Int("baud", link.DefaultBaud, "Serial baud rate")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	level, err := config.ParseLogLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if _, err := logging.Init(level, ""); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := host.NewSession(host.NewPactlMixer(nil))
	for ctx.Err() == nil {
		if err := session.Detach(ctx); err != nil {
			log.Warn().Err(err).Msg("unmute for safety failed")
		} else {
			log.Info().Msg("device missing, unmuted for safety")
		}

		path := *portName
		if path == "" {
			log.Info().Str("vendor", host.VendorName).Str("product", host.ProductName).Msg("waiting for device")
			path = waitForDevice(ctx)
			if path == "" {
				break
			}
		}

		port, err := link.OpenSerial(path, *baud, link.PresenceAlways)
		if err != nil {
			log.Warn().Err(err).Str("port", path).Msg("open failed")
			sleep(ctx, scanInterval)
			continue
		}
		log.Info().Str("port", path).Msg("device found, muting until pressed")

		ticker := time.NewTicker(readInterval)
		err = runSession(ctx, port, session, time.Now, ticker.C)
		ticker.Stop()
		port.Close()
		if err != nil {
			log.Warn().Err(err).Msg("session ended")
			sleep(ctx, scanInterval)
		}
	}

	// Never leave the microphone muted on exit.
	if err := session.Detach(context.Background()); err != nil {
		log.Warn().Err(err).Msg("unmute on exit failed")
	}
}

// runSession drives one device connection until ctx is done or the link fails.
func runSession(ctx context.Context, port link.Port, s *host.Session, now func() time.Time, tick <-chan time.Time) error {
	cmd, err := s.Attach(ctx)
	if err != nil {
		return err
	}
	if err := port.WriteLine(cmd); err != nil {
		return fmt.Errorf("send initial mute state: %w", err)
	}
	log.Info().Str("cmd", cmd).Msg("sent initial mute state")

	attached := now()
	lastPoll := attached
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
		}

		t := now()
		if !s.Initialized() && t.Sub(attached) >= startupTimeout {
			return errNoStartup
		}

		if t.Sub(lastPoll) >= pollInterval {
			lastPoll = t
			cmd, err := s.Poll(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("mixer poll failed")
			} else if err := port.WriteLine(cmd); err != nil {
				return fmt.Errorf("send mute state: %w", err)
			}
		}

		for {
			line, ok := port.ReadLine()
			if !ok {
				break
			}
			log.Debug().Str("line", line).Msg("received")
			action, reply, err := s.HandleLine(ctx, line)
			if err != nil {
				log.Warn().Err(err).Str("action", string(action)).Msg("mixer update failed")
			}
			if reply == "" {
				continue
			}
			if err := port.WriteLine(reply); err != nil {
				return fmt.Errorf("send %s: %w", reply, err)
			}
		}
	}
}

func waitForDevice(ctx context.Context) string {
	for {
		ports, err := enumerator.GetDetailedPortsList()
		if err != nil {
			log.Warn().Err(err).Msg("port scan failed")
		} else if path := findDevice(ports); path != "" {
			return path
		}
		if !sleep(ctx, scanInterval) {
			return ""
		}
	}
}

// findDevice returns the first USB port whose product matches the device.
func findDevice(ports []*enumerator.PortDetails) string {
	for _, p := range ports {
		if p.IsUSB && p.Product == host.ProductName {
			return p.Name
		}
	}
	return ""
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
