package main

import (
	"os"

	"github.com/pborman/getopt"
)

var configPath string
var verboseLog bool
var quietLog bool
var keyboardEnabled bool
var listPorts bool
var listMIDI bool

type argOverrides struct {
	port        string
	baud        int
	reconcile   string
	intervalMs  int
	rigctldPort uint16
}

var overrides argOverrides

func parseArgs() {
	h := getopt.BoolLong("help", 'h', "display help")
	f := getopt.StringLong("config", 'f', defaultConfigPath, "Config file, created with defaults when missing")
	v := getopt.BoolLong("verbose", 'v', "Enable debug logging")
	q := getopt.BoolLong("quiet", 'q', "Only log errors")
	p := getopt.StringLong("port", 'p', "", "Serial port of the radio, or \"pty\" for a virtual one")
	b := getopt.IntLong("baud", 'b', 0, "Serial baud rate")
	r := getopt.StringLong("reconcile", 'r', "", "Radio state reconciliation: off, poll or sniff")
	i := getopt.IntLong("interval", 'i', 0, "Status poll or sniff interval in milliseconds")
	s := getopt.Uint16Long("rigctld-port", 's', 0, "Internal rigctld TCP port, 0 disables")
	k := getopt.BoolLong("keyboard", 'k', "Drive the bridge from the keyboard too")
	c := getopt.BoolLong("comports", 'c', "List serial ports")
	m := getopt.BoolLong("midi", 'm', "List MIDI devices")

	getopt.Parse()

	if *h {
		getopt.Usage()
		os.Exit(1)
	}

	configPath = *f
	verboseLog = *v
	quietLog = *q
	keyboardEnabled = *k
	listPorts = *c
	listMIDI = *m
	overrides = argOverrides{
		port:        *p,
		baud:        *b,
		reconcile:   *r,
		intervalMs:  *i,
		rigctldPort: *s,
	}
}

// apply lets command line flags win over the file and the environment.
func (a argOverrides) apply(cfg *config) error {
	if a.port != "" {
		cfg.Radio.Port = a.port
	}
	if a.baud != 0 {
		cfg.Radio.BaudRate = a.baud
	}
	if a.reconcile != "" {
		cfg.Radio.Reconcile = a.reconcile
	}
	if a.intervalMs != 0 {
		cfg.Radio.PollIntervalMs = a.intervalMs
	}
	if a.rigctldPort != 0 {
		cfg.Rigctld.Port = a.rigctldPort
	}
	return cfg.validate()
}
