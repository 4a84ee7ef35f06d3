package main

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	defaultConfigPath = "djcat.yaml"
	maxStartupCmds    = 3
)

type radioConfig struct {
	Model          string `yaml:"model" split_words:"true"`
	Port           string `yaml:"port" split_words:"true"`
	BaudRate       int    `yaml:"baud_rate" split_words:"true"`
	DataBits       int    `yaml:"data_bits" split_words:"true"`
	StopBits       int    `yaml:"stop_bits" split_words:"true"`
	Parity         string `yaml:"parity" split_words:"true"`
	DTR            bool   `yaml:"dtr" split_words:"true"`
	RTS            bool   `yaml:"rts" split_words:"true"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms" split_words:"true"`
	Reconcile      string `yaml:"reconcile" split_words:"true"`
	PollIntervalMs int    `yaml:"poll_interval_ms" split_words:"true"`
}

func (c radioConfig) readTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

func (c radioConfig) pollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

type defaultsConfig struct {
	Mode       string `yaml:"mode"`
	VFO        string `yaml:"vfo"`
	TuningStep int    `yaml:"tuning_step"`
}

type midiConfig struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

type loggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type statusConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

type rigctldConfig struct {
	Port uint16 `yaml:"port"`
}

type config struct {
	Radio    radioConfig    `yaml:"radio"`
	Defaults defaultsConfig `yaml:"defaults"`
	MIDI     midiConfig     `yaml:"midi"`
	Commands []string       `yaml:"commands"`
	Logging  loggingConfig  `yaml:"logging"`
	Status   statusConfig   `yaml:"status"`
	Rigctld  rigctldConfig  `yaml:"rigctld"`
}

func defaultConfig() config {
	return config{
		Radio: radioConfig{
			Model:          "TS590S",
			Port:           "/dev/ttyUSB0",
			BaudRate:       57600,
			DataBits:       8,
			StopBits:       1,
			Parity:         "N",
			ReadTimeoutMs:  200,
			Reconcile:      "poll",
			PollIntervalMs: 1000,
		},
		Defaults: defaultsConfig{
			Mode:       "USB",
			VFO:        "A",
			TuningStep: 1,
		},
		MIDI: midiConfig{
			Input:  "/dev/snd/midiC1D0",
			Output: "/dev/snd/midiC1D0",
		},
		Commands: []string{"VV"},
		Logging: loggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Status: statusConfig{IntervalMs: 1000},
	}
}

// applyDefaults fills fields the file left empty.
func (c *config) applyDefaults() {
	d := defaultConfig()
	if c.Radio.Port == "" {
		c.Radio.Port = d.Radio.Port
	}
	if c.Radio.BaudRate == 0 {
		c.Radio.BaudRate = d.Radio.BaudRate
	}
	if c.Radio.DataBits == 0 {
		c.Radio.DataBits = d.Radio.DataBits
	}
	if c.Radio.StopBits == 0 {
		c.Radio.StopBits = d.Radio.StopBits
	}
	if c.Radio.Parity == "" {
		c.Radio.Parity = d.Radio.Parity
	}
	if c.Radio.ReadTimeoutMs == 0 {
		c.Radio.ReadTimeoutMs = d.Radio.ReadTimeoutMs
	}
	if c.Radio.PollIntervalMs == 0 {
		c.Radio.PollIntervalMs = d.Radio.PollIntervalMs
	}
	if c.Defaults.Mode == "" {
		c.Defaults.Mode = d.Defaults.Mode
	}
	if c.Defaults.VFO == "" {
		c.Defaults.VFO = d.Defaults.VFO
	}
	if c.Defaults.TuningStep == 0 {
		c.Defaults.TuningStep = d.Defaults.TuningStep
	}
	if c.Status.IntervalMs == 0 {
		c.Status.IntervalMs = d.Status.IntervalMs
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

func (c *config) validate() error {
	if _, err := parseOperatingMode(c.Defaults.Mode); err != nil {
		return fmt.Errorf("defaults.mode: %w", err)
	}
	if _, err := parseVFO(c.Defaults.VFO); err != nil {
		return fmt.Errorf("defaults.vfo: %w", err)
	}
	if c.Defaults.TuningStep < 0 || c.Defaults.TuningStep > 99 {
		return fmt.Errorf("defaults.tuning_step: %d out of range 0..99", c.Defaults.TuningStep)
	}
	if _, err := parseReconcileMode(c.Radio.Reconcile); err != nil {
		return fmt.Errorf("radio.reconcile: %w", err)
	}
	if _, err := serialParity(c.Radio.Parity); err != nil {
		return fmt.Errorf("radio.parity: %w", err)
	}
	if _, err := serialStopBits(c.Radio.StopBits); err != nil {
		return fmt.Errorf("radio.stop_bits: %w", err)
	}
	if c.Radio.BaudRate <= 0 {
		return fmt.Errorf("radio.baud_rate: must be positive")
	}
	if c.Radio.ReadTimeoutMs <= 0 || c.Radio.PollIntervalMs <= 0 || c.Status.IntervalMs <= 0 {
		return errors.New("timeouts and intervals must be positive")
	}
	if len(c.Commands) > maxStartupCmds {
		return fmt.Errorf("at most %d startup commands, got %d", maxStartupCmds, len(c.Commands))
	}
	return nil
}

func writeDefaultConfig(path string) error {
	b, err := yaml.Marshal(defaultConfig())
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, b, 0644)
}

// loadConfig reads path, creating it with defaults when it does not exist,
// then applies DJCAT_RADIO_* environment overrides.
func loadConfig(path string) (cfg config, created bool, err error) {
	b, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		if err = writeDefaultConfig(path); err != nil {
			return cfg, false, fmt.Errorf("can't create %s: %w", path, err)
		}
		created = true
		b, err = ioutil.ReadFile(path)
	}
	if err != nil {
		return cfg, created, err
	}

	if err = yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, created, fmt.Errorf("can't parse %s: %w", path, err)
	}
	if err = envconfig.Process("djcat_radio", &cfg.Radio); err != nil {
		return cfg, created, fmt.Errorf("environment: %w", err)
	}
	cfg.applyDefaults()
	return cfg, created, cfg.validate()
}
