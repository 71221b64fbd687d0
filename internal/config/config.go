// Package config loads daemon settings from flags and an optional JSON file.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/ptt-indicator/internal/gpio"
	"github.com/sweeney/ptt-indicator/internal/led"
	"github.com/sweeney/ptt-indicator/internal/link"
	"github.com/sweeney/ptt-indicator/internal/logic"
)

// Duration is a time.Duration that reads "100ms"-style strings from JSON and flags.
type Duration struct {
	time.Duration
}

// Set implements flag.Value.
func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// UnmarshalJSON accepts a duration string or a number of milliseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.Set(s)
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("duration %s: want string or milliseconds", b)
	}
	d.Duration = time.Duration(ms) * time.Millisecond
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Config holds every daemon setting.
type Config struct {
	ConfigFile string `json:"-"`
	LogLevel   string `json:"log_level"`
	LogFile    string `json:"log_file"`

	Tick        Duration `json:"tick"`
	Hold        Duration `json:"hold"`
	LinkTimeout Duration `json:"link_timeout"`
	BootSettle  Duration `json:"boot_settle"`
	Heartbeat   Duration `json:"heartbeat"`

	PinTalk    int `json:"pin_talk"`
	PinDisable int `json:"pin_disable"`

	SerialPort string `json:"serial_port"`
	Baud       int    `json:"baud"`
	Presence   string `json:"presence"`

	LEDCount   int  `json:"led_count"`
	Brightness int  `json:"brightness"`
	SelfTest   bool `json:"self_test"`

	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	HTTPAddr string `json:"http"`

	StatsdAddr      string   `json:"statsd_addr"`
	StatsdNamespace string   `json:"statsd_namespace"`
	StatsdTags      []string `json:"statsd_tags"`

	PrintState bool `json:"-"`
}

// Default returns the settings used when neither flags nor file override them.
func Default() Config {
	return Config{
		LogLevel:        "info",
		Tick:            Duration{10 * time.Millisecond},
		Hold:            Duration{logic.DefaultHoldDuration},
		LinkTimeout:     Duration{logic.DefaultLinkTimeout},
		BootSettle:      Duration{logic.DefaultBootSettle},
		Heartbeat:       Duration{15 * time.Minute},
		PinTalk:         gpio.DefaultPinTalk,
		PinDisable:      gpio.DefaultPinDisable,
		SerialPort:      "/dev/ttyGS0",
		Baud:            link.DefaultBaud,
		Presence:        string(link.PresenceDSR),
		LEDCount:        led.DefaultCount,
		Brightness:      int(logic.DefaultBrightness().Global),
		SelfTest:        true,
		Broker:          "tcp://localhost:1883",
		ClientID:        "ptt-indicator",
		HTTPAddr:        ":8080",
		StatsdNamespace: "ptt_indicator.",
	}
}

// Load parses args over the defaults. When -config-file is given, the file is
// applied first and flags given on the command line still win.
func Load(args []string) (Config, error) {
	cfg := Default()
	fs := flagSet(&cfg)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.ConfigFile != "" {
		if err := cfg.readFile(cfg.ConfigFile); err != nil {
			return Config{}, err
		}
		if err := fs.Parse(args); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func flagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("ptt-indicator", flag.ContinueOnError)
	fs.StringVar(&cfg.ConfigFile, "config-file", "", "Path to JSON config file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Also append JSON logs to this file")
	fs.Var(&cfg.Tick, "tick", "Control loop interval")
	fs.Var(&cfg.Hold, "hold", "Disable button hold time before toggling")
	fs.Var(&cfg.LinkTimeout, "link-timeout", "Host silence before dropping to standby")
	fs.Var(&cfg.BootSettle, "boot-settle", "Warm-up time after start")
	fs.Var(&cfg.Heartbeat, "heartbeat", "Heartbeat interval (0 to disable)")
	fs.IntVar(&cfg.PinTalk, "pin-talk", cfg.PinTalk, "BCM pin number for the talk button")
	fs.IntVar(&cfg.PinDisable, "pin-disable", cfg.PinDisable, "BCM pin number for the disable button")
	fs.StringVar(&cfg.SerialPort, "serial", cfg.SerialPort, "Serial device connected to the host")
	fs.IntVar(&cfg.Baud, "baud", cfg.Baud, "Serial baud rate")
	fs.StringVar(&cfg.Presence, "presence", cfg.Presence, "Host presence signal (dsr, dcd, cts, always)")
	fs.IntVar(&cfg.LEDCount, "leds", cfg.LEDCount, "Number of LEDs on the strip")
	fs.IntVar(&cfg.Brightness, "brightness", cfg.Brightness, "Global LED brightness (0-255)")
	fs.BoolVar(&cfg.SelfTest, "self-test", cfg.SelfTest, "Run the LED self-test at startup")
	fs.StringVar(&cfg.Broker, "broker", cfg.Broker, "MQTT broker address (empty to disable)")
	fs.StringVar(&cfg.ClientID, "client-id", cfg.ClientID, "MQTT client ID")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP status address (empty to disable)")
	fs.StringVar(&cfg.StatsdAddr, "statsd", cfg.StatsdAddr, "DogStatsD agent address (empty to disable)")
	fs.StringVar(&cfg.StatsdNamespace, "statsd-namespace", cfg.StatsdNamespace, "DogStatsD metric namespace")
	fs.BoolVar(&cfg.PrintState, "print-state", false, "Print current button state and exit")
	return fs
}

func (cfg *Config) readFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate reports every invalid setting at once.
func (cfg Config) Validate() error {
	var problems []string

	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.Tick.Duration <= 0 {
		problems = append(problems, "tick must be positive")
	}
	if cfg.Hold.Duration < 0 {
		problems = append(problems, "hold must not be negative")
	}
	if cfg.LinkTimeout.Duration <= cfg.Tick.Duration {
		problems = append(problems, fmt.Sprintf("link-timeout %v must exceed tick %v", cfg.LinkTimeout, cfg.Tick))
	}
	if cfg.BootSettle.Duration < 0 {
		problems = append(problems, "boot-settle must not be negative")
	}
	if cfg.Heartbeat.Duration < 0 {
		problems = append(problems, "heartbeat must not be negative")
	}
	if cfg.PinTalk < 0 || cfg.PinDisable < 0 {
		problems = append(problems, "pins must not be negative")
	}
	if cfg.PinTalk == cfg.PinDisable {
		problems = append(problems, fmt.Sprintf("pin-talk and pin-disable both use pin %d", cfg.PinTalk))
	}
	if cfg.SerialPort == "" {
		problems = append(problems, "serial port is required")
	}
	if cfg.Baud <= 0 {
		problems = append(problems, "baud must be positive")
	}
	if _, err := link.ParsePresenceSource(cfg.Presence); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.LEDCount < logic.NumLEDs {
		problems = append(problems, fmt.Sprintf("leds must be at least %d", logic.NumLEDs))
	}
	if cfg.Brightness < 0 || cfg.Brightness > 255 {
		problems = append(problems, "brightness must be 0-255")
	}

	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}

// ParseLogLevel maps a level name to a zerolog level.
func ParseLogLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// Logic builds the state machine settings.
func (cfg Config) Logic(version string) logic.Config {
	lc := logic.DefaultConfig()
	lc.HoldDuration = cfg.Hold.Duration
	lc.LinkTimeout = cfg.LinkTimeout.Duration
	lc.BootSettle = cfg.BootSettle.Duration
	lc.Brightness.Global = uint8(cfg.Brightness)
	if version != "" {
		lc.Version = version
	}
	return lc
}
