package main

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const catTerminator = ';'

var errMalformedFrame = errors.New("malformed frame")

type catFormat struct {
	width  int    // Zero-padded decimal argument digits, 0 for bare commands.
	prefix string // Inserted between the mnemonic and the argument.
}

var catFormats = map[string]catFormat{
	"AG": {width: 4},
	"CA": {width: 1},
	"DN": {width: 2},
	"FR": {width: 1},
	"FT": {width: 1},
	"FW": {width: 4},
	"ID": {},
	"IF": {},
	"IS": {width: 4, prefix: " "},
	"MD": {width: 1},
	"PC": {width: 3},
	"PS": {width: 1},
	"RC": {},
	"RD": {},
	"RT": {width: 1},
	"RU": {},
	"SH": {width: 2},
	"SL": {width: 2},
	"TS": {width: 1},
	"UP": {width: 2},
	"VV": {},
	"XT": {width: 1},
}

type catCommand struct {
	mnemonic string
	arg      int
	hasArg   bool
}

func catCmd(mnemonic string, arg int) catCommand {
	return catCommand{mnemonic: mnemonic, arg: arg, hasArg: true}
}

func catBare(mnemonic string) catCommand {
	return catCommand{mnemonic: mnemonic}
}

func (c catCommand) encode() ([]byte, error) {
	if c.hasArg {
		return encodeCommand(c.mnemonic, c.arg)
	}
	return encodeBareCommand(c.mnemonic)
}

func (c catCommand) String() string {
	b, err := c.encode()
	if err != nil {
		return c.mnemonic + "?"
	}
	return string(b)
}

func lookupCATFormat(mnemonic string) (catFormat, error) {
	f, ok := catFormats[mnemonic]
	if !ok {
		return catFormat{}, fmt.Errorf("unknown mnemonic %q", mnemonic)
	}
	return f, nil
}

// encodeCommand renders mnemonic, zero-padded argument and terminator.
func encodeCommand(mnemonic string, arg int) ([]byte, error) {
	f, err := lookupCATFormat(mnemonic)
	if err != nil {
		return nil, err
	}
	if f.width == 0 {
		return nil, fmt.Errorf("%s takes no argument", mnemonic)
	}
	if arg < 0 {
		return nil, fmt.Errorf("%s: negative argument %d", mnemonic, arg)
	}
	digits := strconv.Itoa(arg)
	if len(digits) > f.width {
		return nil, fmt.Errorf("%s: argument %d does not fit in %d digits", mnemonic, arg, f.width)
	}

	var b bytes.Buffer
	b.WriteString(mnemonic)
	b.WriteString(f.prefix)
	b.WriteString(strings.Repeat("0", f.width-len(digits)))
	b.WriteString(digits)
	b.WriteByte(catTerminator)
	return b.Bytes(), nil
}

func encodeBareCommand(mnemonic string) ([]byte, error) {
	f, err := lookupCATFormat(mnemonic)
	if err != nil {
		return nil, err
	}
	if f.width != 0 {
		return nil, fmt.Errorf("%s requires a %d digit argument", mnemonic, f.width)
	}
	return []byte(mnemonic + string(catTerminator)), nil
}

// encodeLiteral passes a user supplied command string through, adding the
// terminator when it is missing.
func encodeLiteral(s string) []byte {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if s[len(s)-1] != catTerminator {
		s += string(catTerminator)
	}
	return []byte(s)
}

// Layout of the IF answer, offsets from the 'I'.
const (
	statusFrameMnemonic = "IF"
	statusFrameLen      = 38
	ifFreqOffset        = 2
	ifFreqLen           = 11
	ifRITOnOffset       = 23
	ifXITOnOffset       = 24
	ifTXOffset          = 28
	ifModeOffset        = 29
	ifVFOOffset         = 30
	ifSplitOffset       = 32
)

type statusFrame struct {
	freq       uint64
	modeDigit  byte
	vfoDigit   byte
	splitDigit byte
	ritOn      bool
	xitOn      bool
	tx         bool
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func decodeStatusFrame(raw []byte) (f statusFrame, err error) {
	if len(raw) < statusFrameLen {
		return f, fmt.Errorf("%w: got %d bytes, want %d", errMalformedFrame, len(raw), statusFrameLen)
	}
	if !bytes.HasPrefix(raw, []byte(statusFrameMnemonic)) {
		return f, fmt.Errorf("%w: missing %s mnemonic", errMalformedFrame, statusFrameMnemonic)
	}
	if raw[statusFrameLen-1] != catTerminator {
		return f, fmt.Errorf("%w: no terminator at offset %d", errMalformedFrame, statusFrameLen-1)
	}

	for _, o := range []int{ifRITOnOffset, ifXITOnOffset, ifTXOffset, ifModeOffset, ifVFOOffset, ifSplitOffset} {
		if !isDigit(raw[o]) {
			return f, fmt.Errorf("%w: non-digit %q at offset %d", errMalformedFrame, raw[o], o)
		}
	}
	f.freq, err = strconv.ParseUint(string(raw[ifFreqOffset:ifFreqOffset+ifFreqLen]), 10, 64)
	if err != nil {
		return statusFrame{}, fmt.Errorf("%w: bad frequency field", errMalformedFrame)
	}

	f.modeDigit = raw[ifModeOffset]
	f.vfoDigit = raw[ifVFOOffset]
	f.splitDigit = raw[ifSplitOffset]
	f.ritOn = raw[ifRITOnOffset] == '1'
	f.xitOn = raw[ifXITOnOffset] == '1'
	f.tx = raw[ifTXOffset] == '1'
	return f, nil
}

// scanStatusFrames extracts every complete status frame from buf. An
// incomplete frame at the end is returned in rest so the caller can prepend
// it to the next read.
func scanStatusFrames(buf []byte) (frames []statusFrame, rest []byte, malformed int) {
	mnemonic := []byte(statusFrameMnemonic)
	for {
		i := bytes.Index(buf, mnemonic)
		if i < 0 {
			// A trailing 'I' may be the first half of the next mnemonic.
			if len(buf) > 0 && buf[len(buf)-1] == mnemonic[0] {
				return frames, buf[len(buf)-1:], malformed
			}
			return frames, nil, malformed
		}
		buf = buf[i:]

		// "IF;" is somebody's query, not an answer.
		if len(buf) > len(mnemonic) && buf[len(mnemonic)] == catTerminator {
			buf = buf[len(mnemonic)+1:]
			continue
		}
		if len(buf) < statusFrameLen {
			return frames, buf, malformed
		}

		f, err := decodeStatusFrame(buf[:statusFrameLen])
		if err != nil {
			malformed++
			buf = buf[len(mnemonic):]
			continue
		}
		frames = append(frames, f)
		buf = buf[statusFrameLen:]
	}
}

// parseIDReply returns the model number from an "IDnnn;" answer.
func parseIDReply(raw []byte) (string, error) {
	i := bytes.Index(raw, []byte("ID"))
	if i < 0 {
		return "", fmt.Errorf("%w: no ID answer in %q", errMalformedFrame, raw)
	}
	raw = raw[i+2:]
	end := bytes.IndexByte(raw, catTerminator)
	if end <= 0 {
		return "", fmt.Errorf("%w: unterminated ID answer", errMalformedFrame)
	}
	for _, b := range raw[:end] {
		if !isDigit(b) {
			return "", fmt.Errorf("%w: bad ID answer %q", errMalformedFrame, raw[:end])
		}
	}
	return string(raw[:end]), nil
}
