package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/djcat/djcat/log"
	"go.bug.st/serial"
)

var (
	errNoResponse  = errors.New("no response from radio")
	errReadFailed  = errors.New("read from radio failed")
	errWriteFailed = errors.New("write to radio failed")
	errLinkClosed  = errors.New("radio link closed")
)

type catPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// catLink is the serial connection to the radio. Writes and query cycles
// are serialized; readAvailable only reads and must not overlap a query.
type catLink struct {
	mutex       sync.Mutex
	port        catPort
	readTimeout time.Duration
}

func serialParity(p string) (serial.Parity, error) {
	switch p {
	case "N", "n", "":
		return serial.NoParity, nil
	case "E", "e":
		return serial.EvenParity, nil
	case "O", "o":
		return serial.OddParity, nil
	case "M", "m":
		return serial.MarkParity, nil
	case "S", "s":
		return serial.SpaceParity, nil
	}
	return serial.NoParity, fmt.Errorf("unknown parity %q", p)
}

func serialStopBits(n int) (serial.StopBits, error) {
	switch n {
	case 1:
		return serial.OneStopBit, nil
	case 2:
		return serial.TwoStopBits, nil
	}
	return serial.OneStopBit, fmt.Errorf("unsupported stop bits %d", n)
}

func openCATLink(c radioConfig) (*catLink, error) {
	if c.Port == ptyPortName {
		p, err := openPTYPort()
		if err != nil {
			return nil, err
		}
		return newCATLink(p, c.readTimeout())
	}

	parity, err := serialParity(c.Parity)
	if err != nil {
		return nil, err
	}
	stopBits, err := serialStopBits(c.StopBits)
	if err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		Parity:   parity,
		StopBits: stopBits,
	}
	p, err := serial.Open(c.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("can't open %s: %w", c.Port, err)
	}
	if err := p.SetDTR(c.DTR); err != nil {
		log.Debug("can't set dtr: ", err)
	}
	if err := p.SetRTS(c.RTS); err != nil {
		log.Debug("can't set rts: ", err)
	}
	log.Print("opened ", c.Port, " at ", c.BaudRate, " baud")
	return newCATLink(p, c.readTimeout())
}

func newCATLink(p catPort, readTimeout time.Duration) (*catLink, error) {
	if err := p.SetReadTimeout(readTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("can't set read timeout: %w", err)
	}
	return &catLink{port: p, readTimeout: readTimeout}, nil
}

func (l *catLink) sendCommands(cmds ...catCommand) error {
	var b bytes.Buffer
	for _, c := range cmds {
		enc, err := c.encode()
		if err != nil {
			log.Error("can't encode ", c.mnemonic, ": ", err)
			continue
		}
		b.Write(enc)
	}
	if b.Len() == 0 {
		return nil
	}
	return l.write(b.Bytes())
}

func (l *catLink) sendLiteral(s string) error {
	b := encodeLiteral(s)
	if len(b) == 0 {
		return nil
	}
	return l.write(b)
}

func (l *catLink) write(b []byte) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.writeLocked(b)
}

// writeLocked releases the port when the write fails; the session is over
// at that point.
func (l *catLink) writeLocked(b []byte) error {
	if l.port == nil {
		return errLinkClosed
	}
	n, err := l.port.Write(b)
	netstat.add(n, 0)
	if err != nil {
		if cerr := l.closeLocked(); cerr != nil {
			log.Debug("can't close link: ", cerr)
		}
		return fmt.Errorf("%w: %v", errWriteFailed, err)
	}
	return nil
}

// query sends a bare mnemonic and returns the answer from the mnemonic up
// to and including the terminator.
func (l *catLink) query(mnemonic string) ([]byte, error) {
	req, err := encodeBareCommand(mnemonic)
	if err != nil {
		return nil, err
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if err := l.writeLocked(req); err != nil {
		return nil, err
	}

	var buf []byte
	chunk := make([]byte, 64)
	deadline := time.Now().Add(l.readTimeout)
	for time.Now().Before(deadline) {
		n, err := l.port.Read(chunk)
		netstat.add(0, n)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errReadFailed, err)
		}
		buf = append(buf, chunk[:n]...)

		if i := bytes.Index(buf, []byte(mnemonic)); i >= 0 {
			if j := bytes.IndexByte(buf[i:], catTerminator); j >= 0 {
				return buf[i : i+j+1], nil
			}
		}
	}
	return nil, errNoResponse
}

// readAvailable returns whatever arrived within one read timeout, possibly
// nothing.
func (l *catLink) readAvailable() ([]byte, error) {
	l.mutex.Lock()
	p := l.port
	l.mutex.Unlock()
	if p == nil {
		return nil, errLinkClosed
	}

	b := make([]byte, 256)
	n, err := p.Read(b)
	netstat.add(0, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errReadFailed, err)
	}
	return b[:n], nil
}

func (l *catLink) closeLocked() error {
	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil
	return err
}

func (l *catLink) close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.closeLocked()
}

// checkRadio makes sure something answers on the link before the surface
// is allowed to drive it.
func checkRadio(l *catLink, attempts int) (model string, err error) {
	for i := 0; i < attempts; i++ {
		var raw []byte
		raw, err = l.query("ID")
		if err == nil {
			return parseIDReply(raw)
		}
		if !errors.Is(err, errNoResponse) {
			return "", err
		}
		log.Debug("radio check attempt ", i+1, " got no answer")
	}
	return "", err
}

func listSerialPorts() {
	ports, err := serial.GetPortsList()
	if err != nil {
		log.Error("can't list serial ports: ", err)
		return
	}
	if len(ports) == 0 {
		log.Print("no serial ports found")
		return
	}
	for _, p := range ports {
		log.Print("serial port: ", p)
	}
}
