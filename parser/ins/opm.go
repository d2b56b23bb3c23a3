package ins

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/song"
)

// VOPM text banks. Each voice looks like:
//
//	@:0 Name
//	LFO: LFRQ AMD PMD WF NFRQ
//	CH: PAN FL CON AMS PMS SLOT NE
//	M1: AR D1R D2R RR D1L TL KS MUL DT1 DT2 AMS-EN
//	C1: ...
//	M2: ...
//	C2: ...
//
// Lines starting with "//" are comments.

// Operator lines in the order they map to song.FM.Op, with the bit each
// one has in the CH line's SLOT mask.
var opmOperators = []struct {
	key  string
	slot uint8
}{
	{"M1", 1 << 3},
	{"C1", 1 << 4},
	{"M2", 1 << 5},
	{"C2", 1 << 6},
}

// Largest value of each column of an operator line.
var opmOperatorLimits = [11]int{31, 31, 31, 15, 15, 127, 3, 15, 7, 3, 255}

// Largest value of each column of the CH line.
var opmChannelLimits = [7]int{255, 7, 7, 3, 7, 127, 255}

type opmParser struct {
	d          *decoder
	scanner    *bufio.Scanner
	lineNumber int
	offset     int // Byte offset of the current line.
	lineLen    int // Bytes the current line takes, terminator included.

	// The voice being read, nil between voices.
	cur    *song.Instrument
	index  int
	start  int             // Offset of the voice's "@:" line.
	seen   map[string]bool // Lines of the current voice already read.
	failed error           // Set when the current voice can't be used.
}

func decodeOPM(d *decoder) error {
	p := &opmParser{
		d:       d,
		scanner: bufio.NewScanner(bytes.NewReader(d.data)),
	}
	// A single line may take up the whole file.
	p.scanner.Buffer(make([]byte, 0, 4096), len(d.data)+1)
	p.scanner.Split(p.scanLines)
	if err := p.parse(); err != nil {
		return err
	}
	d.r.Skip(d.r.Remaining(), "text")
	if len(d.out) == 0 && p.index == 0 {
		return d.r.Invariantf("no voices found")
	}
	return nil
}

// scanLines splits like bufio.ScanLines and remembers how many bytes the
// line used, so offsets stay right when a "\r\n" terminator is stripped.
func (p *opmParser) scanLines(data []byte, atEOF bool) (int, []byte, error) {
	advance, token, err := bufio.ScanLines(data, atEOF)
	if token != nil {
		p.lineLen = advance
	}
	return advance, token, err
}

func (p *opmParser) fatalf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", p.lineNumber, fmt.Sprintf(format, args...))
}

// fail marks the current voice as unusable. Only the first problem is kept.
func (p *opmParser) fail(format string, args ...any) {
	if p.failed == nil {
		p.failed = p.fatalf(format, args...)
	}
}

func (p *opmParser) parse() error {
	next := 0
	for p.scanner.Scan() {
		p.lineNumber++
		line := p.scanner.Text()
		p.offset = next
		next += p.lineLen
		trimmedLine := strings.TrimSpace(line)

		if trimmedLine == "" || strings.HasPrefix(trimmedLine, "//") {
			continue
		}

		key, value, ok := strings.Cut(trimmedLine, ":")
		if !ok {
			if p.cur != nil {
				p.fail("unexpected text in voice: %s", trimmedLine)
			}
			continue
		}
		key = strings.TrimSpace(key)

		if key == "@" {
			p.finish()
			p.begin(strings.TrimSpace(value))
			continue
		}
		if p.cur == nil {
			// Header lines before the first voice.
			continue
		}
		if p.seen[key] {
			p.fail("%s line appears twice", key)
			continue
		}
		p.seen[key] = true

		switch key {
		case "LFO":
			// Chip-wide settings with no place in an instrument.
			p.d.log.WithField("line", p.lineNumber).WithField("lfo", strings.Join(strings.Fields(value), " ")).Debug("LFO settings ignored")
		case "CH":
			p.parseChannel(value)
		default:
			j := opmOperatorIndex(key)
			if j < 0 {
				p.fail("unknown line %q", key)
				continue
			}
			p.parseOperator(j, value)
		}
	}
	if err := p.scanner.Err(); err != nil {
		p.d.r.Seek(int64(next), io.SeekStart)
		return p.d.r.Invariantf("line %d: %v", p.lineNumber+1, err)
	}
	p.finish()
	return nil
}

func opmOperatorIndex(key string) int {
	for j, o := range opmOperators {
		if o.key == key {
			return j
		}
	}
	return -1
}

// begin starts a voice from the text after "@:", the voice number and an
// optional name.
func (p *opmParser) begin(s string) {
	p.cur = newFM(song.InsOPM, 4)
	p.start = p.offset
	p.seen = make(map[string]bool)
	p.failed = nil

	num, name := s, ""
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		num, name = s[:i], s[i+1:]
	}
	if _, err := strconv.Atoi(num); err != nil {
		p.fail("invalid voice number %q", num)
	}
	p.cur.Name = strings.TrimSpace(name)
}

// finish adds the current voice, or records why it was skipped.
func (p *opmParser) finish() {
	if p.cur == nil {
		return
	}
	index := p.index
	p.index++
	ins := p.cur
	p.cur = nil

	if p.failed == nil {
		var missing []string
		for _, k := range []string{"CH", "M1", "C1", "M2", "C2"} {
			if !p.seen[k] {
				missing = append(missing, k)
			}
		}
		if len(missing) > 0 {
			p.failed = fmt.Errorf("missing %s lines", strings.Join(missing, ", "))
		}
	}
	if p.failed != nil {
		p.d.warnAt(bin.WarnSkippedEntry, p.start, "entry %d skipped: %v", index, p.failed)
		return
	}
	p.d.addEntry(ins, index)
}

// parseNumbers parses exactly len(limits) whitespace-separated integers,
// each between 0 and its limit.
func parseNumbers(s string, limits []int) ([]int, error) {
	tokens := strings.Fields(s)
	if len(tokens) != len(limits) {
		return nil, fmt.Errorf("expected %d numbers, got %d", len(limits), len(tokens))
	}
	out := make([]int, 0, len(tokens))
	for i, token := range tokens {
		v, err := strconv.Atoi(token)
		if err != nil {
			return nil, fmt.Errorf("token %d (%q) is not a valid integer: %w", i+1, token, err)
		}
		if v < 0 || v > limits[i] {
			return nil, fmt.Errorf("token %d (%q) must be in the range 0..%d", i+1, token, limits[i])
		}
		out = append(out, v)
	}
	return out, nil
}

func (p *opmParser) parseChannel(s string) {
	v, err := parseNumbers(s, opmChannelLimits[:])
	if err != nil {
		p.fail("CH: %v", err)
		return
	}
	f := &p.cur.FM
	f.FB = uint8(v[1])
	f.Alg = uint8(v[2])
	f.AMS = uint8(v[3])
	f.FMS = uint8(v[4])
	for j, o := range opmOperators {
		f.Op[j].Enable = uint8(v[5])&o.slot != 0
	}
	if v[6] != 0 {
		p.d.warnAt(bin.WarnLossy, p.offset, "line %d: noise enable is not imported", p.lineNumber)
	}
}

func (p *opmParser) parseOperator(j int, s string) {
	v, err := parseNumbers(s, opmOperatorLimits[:])
	if err != nil {
		p.fail("%s: %v", opmOperators[j].key, err)
		return
	}
	op := &p.cur.FM.Op[j]
	op.AR = uint8(v[0])
	op.DR = uint8(v[1])
	op.D2R = uint8(v[2])
	op.RR = uint8(v[3])
	op.SL = uint8(v[4])
	op.TL = uint8(v[5])
	op.RS = uint8(v[6])
	op.Mult = uint8(v[7])
	op.DT = dtNative[v[8]]
	op.DT2 = uint8(v[9])
	if v[10] != 0 {
		op.AM = 1
	}
}
