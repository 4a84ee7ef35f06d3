package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/djcat/djcat/log"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

type statusLogStruct struct {
	mutex sync.Mutex

	realtime  bool
	line      string
	startTime time.Time

	preGenerated struct {
		modeColor  *color.Color
		flagColor  *color.Color
		splitColor *color.Color
		txColor    *color.Color
		rx         string
		tx         string
	}
}

var statusLog statusLogStruct
var statusLogInterval = time.Second

// initIfNeeded decides between an in place colored line and plain log
// lines.
func (s *statusLogStruct) initIfNeeded(quiet bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.preGenerated.modeColor != nil {
		return
	}
	s.realtime = !quiet && isatty.IsTerminal(os.Stdout.Fd())

	s.preGenerated.modeColor = color.New(color.FgHiWhite, color.BgBlue)
	s.preGenerated.flagColor = color.New(color.FgHiWhite, color.BgGreen)
	s.preGenerated.splitColor = color.New(color.FgHiMagenta)
	s.preGenerated.txColor = color.New(color.FgHiWhite, color.BgRed)

	s.preGenerated.rx = color.New(color.FgHiWhite, color.BgGreen).Sprint(" RX ")
	s.preGenerated.tx = s.preGenerated.txColor.Sprint(" TX ")
}

func (s *statusLogStruct) paint(c *color.Color, str string) string {
	if !s.realtime || c == nil {
		return str
	}
	return c.Sprint(str)
}

func formatFreq(f uint64) string {
	if f == 0 {
		return "?"
	}
	str := fmt.Sprint(f)
	var b strings.Builder
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (s *statusLogStruct) flagStr(name string, on bool) string {
	if !on {
		return strings.Repeat(" ", len(name)+2)
	}
	return s.paint(s.preGenerated.flagColor, " "+name+" ")
}

// formatLine renders one status line. Caller holds the mutex.
func (s *statusLogStruct) formatLine(st radioSnapshot, up, down, writes int) string {
	stateStr := "RX"
	if s.realtime {
		stateStr = s.preGenerated.rx
		if st.tx {
			stateStr = s.preGenerated.tx
		}
	} else if st.tx {
		stateStr = "TX"
	}

	vfoStr := "VFO " + st.vfo.String()
	if st.splitOn {
		vfoStr = s.paint(s.preGenerated.splitColor, "SPLIT "+st.vfo.String()+"/"+(1-st.vfo).String())
	}

	return fmt.Sprint(stateStr, " ", formatFreq(st.freq), " ",
		s.paint(s.preGenerated.modeColor, fmt.Sprintf(" %-3v ", st.mode)), " ", vfoStr, " ",
		s.flagStr("RIT", st.ritOn), s.flagStr("XIT", st.xitOn), s.flagStr("PWR", st.powerOn),
		" | up ", time.Since(s.startTime).Round(time.Second),
		" cat out ", netstat.formatByteCount(up), "/s in ", netstat.formatByteCount(down), "/s ", writes, " writes")
}

func (s *statusLogStruct) update(state *radioState) {
	up, down, writes := netstat.get()
	st := state.snapshot()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.line = s.formatLine(st, up, down, writes)
	if s.realtime {
		s.line = fmt.Sprint(time.Now().Format("2006-01-02T15:04:05.000Z0700"), " ", s.line, "\r")
	}
}

func (s *statusLogStruct) clearLineInternal() {
	fmt.Print("\033[2K\r")
}

// interruptLine clears the realtime line so a log message can take its
// place. The returned function repaints it.
func (s *statusLogStruct) interruptLine() func() {
	s.mutex.Lock()
	if !s.realtime {
		s.mutex.Unlock()
		return func() {}
	}
	s.clearLineInternal()
	return func() {
		s.mutex.Unlock()
		s.print()
	}
}

func (s *statusLogStruct) print() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.realtime {
		s.clearLineInternal()
		fmt.Print(s.line)
	} else {
		log.PrintStatusLog(s.line)
	}
}

// newLine keeps the current line in the scrollback.
func (s *statusLogStruct) newLine() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.realtime {
		fmt.Println()
	}
}

// run prints the mirror once per interval until ctx is done.
func (s *statusLogStruct) run(ctx context.Context, state *radioState) error {
	s.mutex.Lock()
	s.startTime = time.Now()
	s.mutex.Unlock()
	netstat.reset()

	ticker := time.NewTicker(statusLogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.update(state)
			s.print()
		case <-ctx.Done():
			s.mutex.Lock()
			if s.realtime {
				s.clearLineInternal()
			}
			s.mutex.Unlock()
			return nil
		}
	}
}
