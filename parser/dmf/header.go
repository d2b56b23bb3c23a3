package dmf

import (
	"strconv"
	"strings"

	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/song"
)

func (d *decoder) readHeader() error {
	r := d.r
	s := d.song
	switch d.rules.header {
	case headerMobile:
		m := &song.MobileInfo{}
		m.Vendor = r.ReadPString("vendor")
		m.Carrier = r.ReadPString("carrier")
		m.Category = r.ReadPString("category")
		s.Name = r.ReadPString("name")
		s.Author = r.ReadPString("author")
		m.Writer = r.ReadPString("writer")
		m.Composer = r.ReadPString("composer")
		m.Arranger = r.ReadPString("arranger")
		m.Copyright = r.ReadPString("copyright")
		m.ManagementGroup = r.ReadPString("management group")
		m.ManagementInfo = r.ReadPString("management info")
		m.CreatedDate = r.ReadPString("created date")
		m.RevisionDate = r.ReadPString("revision date")
		s.Mobile = m
	case headerNameAuthor:
		s.Name = r.ReadPString("name")
		s.Author = r.ReadPString("author")
	}
	return nil
}

// Tick rates selected by the time base on YMU759 modules.
var ymu759TickRates = [...]float64{248, 200, 100, 50, 25, 12.5}

func (d *decoder) readTiming() error {
	r := d.r
	s := d.song
	t := d.rules.timing

	s.HighlightA, s.HighlightB = 4, 16
	if t.highlight {
		s.HighlightA = r.ReadU8("highlight A")
		s.HighlightB = r.ReadU8("highlight B")
	}

	s.TimeBase = r.ReadU8("time base")
	speed1 := r.ReadU8("speed 1")
	s.Speeds = []uint8{speed1}
	s.TickRate = 60
	if t.speedPair {
		speed2 := r.ReadU8("speed 2")
		s.Speeds = append(s.Speeds, speed2)
		if r.ReadU8("NTSC flag") == 1 {
			s.TickRate = 60
		} else {
			s.TickRate = 50
		}
		s.CustomTempo = r.ReadBool("custom tempo flag")
	}
	if t.customHz {
		hz := r.ReadString(3, "custom tick rate")
		if s.CustomTempo && r.Err() == nil {
			rate, err := strconv.Atoi(strings.TrimSpace(hz))
			if err != nil || rate <= 0 {
				d.warnf(bin.WarnLossy, "invalid custom tick rate %q, using 60 Hz", hz)
				rate = 60
			}
			s.TickRate = float64(rate)
		}
	}

	if t.longPatterns {
		s.PatternLength = int(r.ReadI32("pattern length"))
	} else {
		s.PatternLength = int(r.ReadU8("pattern length"))
	}
	if s.PatternLength < 1 || s.PatternLength > song.MaxPatternLength {
		return r.Invariantf("pattern length must be 1-%d, got %d", song.MaxPatternLength, s.PatternLength)
	}

	orders := int(r.ReadU8("order count"))
	if orders < 1 || orders > song.MaxOrders {
		return r.Invariantf("order count must be 1-%d, got %d", song.MaxOrders, orders)
	}
	s.Orders = make([][]uint8, d.prof.channels)
	for ch := range s.Orders {
		s.Orders[ch] = make([]uint8, orders)
	}

	s.ArpSpeed = 1
	if t.arpSpeed {
		s.ArpSpeed = r.ReadU8("arpeggio speed")
	}

	if s.System == song.ChipYMU759 {
		s.TickRate = ymu759TickRates[0]
		if int(s.TimeBase) < len(ymu759TickRates) {
			s.TickRate = ymu759TickRates[s.TimeBase]
		}
		s.CustomTempo = true
	}
	return nil
}

func (d *decoder) readOrders() error {
	r := d.r
	s := d.song
	s.Channels = make([]song.Channel, d.prof.channels)
	for ch := range s.Channels {
		s.Channels[ch].EffectColumns = 1
	}

	for ch, orders := range s.Orders {
		r.SetStageIndex(ch)
		r.StartSubStage("order")
		for o := range orders {
			r.SetSubStageIndex(o)
			idx := r.ReadU8("pattern index")
			if idx > song.MaxPatternIndex {
				return r.Invariantf("pattern index %#02x exceeds %#02x", idx, song.MaxPatternIndex)
			}
			orders[o] = idx
			if d.version >= 0x19 {
				name := r.ReadPString("pattern name")
				if r.Err() == nil {
					s.Channels[ch].Pattern(int(idx), s.PatternLength).Name = name
				}
			}
		}
		if err := r.Err(); err != nil {
			return err
		}
	}

	// Historic per-channel byte, unused since.
	if d.version >= 0x04 && d.version < 0x06 {
		r.SetStageIndex(-1)
		for ch := 0; ch < d.prof.channels && ch < 16; ch++ {
			r.Skip(1, "effect column count")
		}
	}
	return nil
}
