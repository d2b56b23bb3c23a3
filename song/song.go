// Package song holds the decoded form of a tracker module and the
// normalisation steps applied to it after decoding.
package song

import (
	"fmt"
	"strings"
)

// Pattern and order bounds. Values come straight from the file, so they are
// checked before anything is allocated.
const (
	MaxPatternLength = 256
	MaxOrders        = 128
	MaxPatternIndex  = 0x7f
	MaxEffectColumns = 4
)

// Special note values.
const (
	NoteEmpty   = 0
	NoteOff     = 100
	NoteRelease = 101
)

// Empty marks an unset volume, instrument or effect field.
const Empty = -1

// Text fields carried by old YMU759 modules.
type MobileInfo struct {
	Vendor, Carrier, Category  string
	Writer, Composer, Arranger string
	Copyright, ManagementGroup string
	ManagementInfo             string
	CreatedDate, RevisionDate  string
}

// A whole song.
type Song struct {
	Version uint8  // Module format revision the song was loaded from.
	Name    string // The name of the song.
	Author  string // The author of the song.
	Mobile  *MobileInfo

	System Chip // The system stored in the file.
	Chips  []ChipConfig
	Tuning float64 // The frequency of A4 (usually 440 Hz).

	HighlightA, HighlightB uint8

	TimeBase    uint8
	Speeds      []uint8 // One or two speeds, alternating every row.
	TickRate    float64 // Ticks per second.
	CustomTempo bool

	PatternLength int
	ArpSpeed      uint8

	// Orders[channel][order] is a pattern index.
	Orders   [][]uint8
	Channels []Channel

	Instruments []*Instrument
	Wavetables  []*Wavetable
	Samples     []*Sample

	Compat CompatFlags
}

// OrderCount returns the number of orders in the song.
func (s *Song) OrderCount() int {
	if len(s.Orders) == 0 {
		return 0
	}
	return len(s.Orders[0])
}

// A single channel and the patterns it plays.
type Channel struct {
	EffectColumns int
	Patterns      map[int]*Pattern
}

// Pattern returns pattern index of the channel, creating it with rows empty
// rows if it doesn't exist yet.
func (c *Channel) Pattern(index, rows int) *Pattern {
	if c.Patterns == nil {
		c.Patterns = make(map[int]*Pattern)
	}
	if p, ok := c.Patterns[index]; ok {
		return p
	}
	p := NewPattern(rows)
	c.Patterns[index] = p
	return p
}

// A single pattern.
type Pattern struct {
	Name string
	Rows []Row
}

// NewPattern returns a pattern of n empty rows.
func NewPattern(n int) *Pattern {
	p := &Pattern{Rows: make([]Row, n)}
	for i := range p.Rows {
		p.Rows[i] = EmptyRow()
	}
	return p
}

// An effect command and its parameter. Empty fields hold -1.
type Effect struct {
	Cmd   int16
	Value int16
}

// A row in a pattern.
type Row struct {
	Note       int16 // 1..12 (C# through C), or NoteOff / NoteRelease, 0 if empty.
	Octave     int16
	Instrument int16
	Volume     int16
	Effects    []Effect
}

// EmptyRow returns a row with no note and every other field unset.
func EmptyRow() Row {
	return Row{Instrument: Empty, Volume: Empty}
}

var noteNames = [...]string{"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-", "C-"}

// String formats the row the way a tracker displays it.
func (r Row) String() string {
	var b strings.Builder
	switch {
	case r.Note == NoteOff:
		b.WriteString("OFF")
	case r.Note == NoteRelease:
		b.WriteString("===")
	case r.Note >= 1 && r.Note <= 12:
		octave := r.Octave
		if r.Note == 12 {
			octave++
		}
		b.WriteString(noteNames[r.Note])
		if octave < 0 {
			fmt.Fprintf(&b, "%d", -octave)
		} else {
			fmt.Fprintf(&b, "%d", octave)
		}
	default:
		b.WriteString("...")
	}
	b.WriteByte(' ')
	writeHex(&b, r.Instrument)
	b.WriteByte(' ')
	writeHex(&b, r.Volume)
	for _, fx := range r.Effects {
		b.WriteByte(' ')
		writeHex(&b, fx.Cmd)
		if fx.Cmd < 0 {
			b.WriteString("..")
		} else {
			writeHex(&b, fx.Value)
		}
	}
	return b.String()
}

func writeHex(b *strings.Builder, v int16) {
	if v < 0 {
		b.WriteString("..")
		return
	}
	fmt.Fprintf(b, "%02X", v)
}

// formatTable formats cells into a table with one column per channel.
// cells[row][column] is printed as-is; headers names the columns.
func formatTable(headers []string, cells [][]string, indent int) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range cells {
		for i, c := range row {
			if i < len(widths) && len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}

	padRight := func(s string, w int) string {
		if len(s) >= w {
			return s
		}
		return s + strings.Repeat(" ", w-len(s))
	}

	var b strings.Builder
	separator := func() {
		b.WriteString(strings.Repeat(" ", indent))
		for _, w := range widths {
			b.WriteString("+")
			b.WriteString(strings.Repeat("-", w+2)) // +2 for the space padding either side
		}
		b.WriteString("+\n")
	}
	line := func(row []string) {
		b.WriteString(strings.Repeat(" ", indent))
		for i, w := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString("| ")
			b.WriteString(padRight(cell, w))
			b.WriteString(" ")
		}
		b.WriteString("|\n")
	}

	separator()
	line(headers)
	separator()
	for _, row := range cells {
		line(row)
	}
	separator()
	return b.String()
}

// OrderTable formats every channel's pattern at the given order side by side.
func (s *Song) OrderTable(order int) (string, error) {
	if order < 0 || order >= s.OrderCount() {
		return "", fmt.Errorf("order must be 0-%d, got %d", s.OrderCount()-1, order)
	}

	headers := make([]string, len(s.Channels))
	cells := make([][]string, s.PatternLength)
	for row := range cells {
		cells[row] = make([]string, len(s.Channels))
	}
	for ch := range s.Channels {
		idx := int(s.Orders[ch][order])
		headers[ch] = fmt.Sprintf("Channel %d (%02X)", ch, idx)
		p := s.Channels[ch].Patterns[idx]
		if p == nil {
			continue
		}
		for row := range cells {
			if row < len(p.Rows) {
				cells[row][ch] = p.Rows[row].String()
			}
		}
	}
	return formatTable(headers, cells, 2), nil
}

// Pretty-print
func (s *Song) String() string {
	var b strings.Builder
	b.WriteString("Song:\n")
	fmt.Fprintf(&b, "- Name: %s\n", s.Name)
	fmt.Fprintf(&b, "- Author: %s\n", s.Author)
	fmt.Fprintf(&b, "- Format version: 0x%02x\n", s.Version)
	fmt.Fprintf(&b, "- System: %s\n", s.System)
	for i, c := range s.Chips {
		fmt.Fprintf(&b, "  - Chip #%d: %s (volume %.2f)\n", i, c.ID, c.Volume)
	}
	fmt.Fprintf(&b, "- Tuning: %.2f Hz\n", s.Tuning)
	fmt.Fprintf(&b, "- Tick rate: %.2f Hz", s.TickRate)
	if s.CustomTempo {
		b.WriteString(" (custom)")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- Speeds: %v (time base %d)\n", s.Speeds, s.TimeBase)
	fmt.Fprintf(&b, "- Highlight: %d/%d\n", s.HighlightA, s.HighlightB)
	fmt.Fprintf(&b, "- Pattern length: %d\n", s.PatternLength)
	fmt.Fprintf(&b, "- Orders: %d\n", s.OrderCount())
	fmt.Fprintf(&b, "- Channels: %d\n", len(s.Channels))

	fmt.Fprintf(&b, "- Instruments: %d\n", len(s.Instruments))
	for i, ins := range s.Instruments {
		fmt.Fprintf(&b, "  - #%02X %s [%s]\n", i, ins.Name, ins.Type)
	}
	fmt.Fprintf(&b, "- Wavetables: %d\n", len(s.Wavetables))
	fmt.Fprintf(&b, "- Samples: %d\n", len(s.Samples))
	for i, smp := range s.Samples {
		fmt.Fprintf(&b, "  - #%02X %s (%d samples, %d Hz, %s)\n", i, smp.Name, smp.Samples, smp.Rate, smp.Depth)
	}
	return b.String()
}
