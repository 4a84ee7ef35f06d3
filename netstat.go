package main

import (
	"fmt"
	"sync"
	"time"
)

// netstatStruct counts CAT traffic in both directions.
type netstatStruct struct {
	mutex sync.Mutex

	toRadioBytes   int
	fromRadioBytes int
	commands       int
	lastGet        time.Time
}

var netstat netstatStruct

func (b *netstatStruct) reset() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.toRadioBytes = 0
	b.fromRadioBytes = 0
	b.commands = 0
	b.lastGet = time.Now()
}

// Call this function when bytes are written to or read from the radio.
func (b *netstatStruct) add(toRadioBytes, fromRadioBytes int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.toRadioBytes += toRadioBytes
	if toRadioBytes > 0 {
		b.commands++
	}
	b.fromRadioBytes += fromRadioBytes
}

func (b *netstatStruct) get() (toRadioBytesPerSec, fromRadioBytesPerSec, writes int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	secs := time.Since(b.lastGet).Seconds()
	if secs > 0 {
		toRadioBytesPerSec = int(float64(b.toRadioBytes) / secs)
		fromRadioBytesPerSec = int(float64(b.fromRadioBytes) / secs)
	}
	writes = b.commands

	b.toRadioBytes = 0
	b.fromRadioBytes = 0
	b.commands = 0
	b.lastGet = time.Now()
	return
}

func (b *netstatStruct) formatByteCount(c int) string {
	const unit = 1000
	if c < unit {
		return fmt.Sprintf("%d B", c)
	}
	div, exp := int(unit), 0
	for n := c / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(c)/float64(div), "kMGTPE"[exp])
}
