package dmf

import (
	"github.com/QEStudios/TrackerImporter/song"
)

func (d *decoder) readWavetables() error {
	if d.version < 0x0c {
		return nil
	}
	r := d.r
	count := int(r.ReadU8("wavetable count"))
	waves := make([]*song.Wavetable, 0, count)
	for i := 0; i < count; i++ {
		r.SetStageIndex(i)
		n := int(r.ReadI32("wavetable length"))
		if n < 0 || n > song.MaxWaveLen {
			return r.Invariantf("wavetable length must be 0-%d, got %d", song.MaxWaveLen, n)
		}
		values := make([]int32, n)
		for k := range values {
			if d.version < 0x0e {
				values[k] = int32(r.ReadU8("wavetable value"))
			} else {
				values[k] = r.ReadI32("wavetable value")
			}
		}
		if err := r.Err(); err != nil {
			return err
		}
		waves = append(waves, song.NewWavetable(values, d.prof.sys))
	}
	d.song.Wavetables = song.DropEmptyWaveQuirk(waves)
	return nil
}

func (d *decoder) readPatterns() error {
	r := d.r
	s := d.song
	for ch := range s.Channels {
		r.SetStageIndex(ch)
		c := &s.Channels[ch]
		if d.version >= 0x0a {
			cols := int(r.ReadU8("effect column count"))
			if err := r.Err(); err != nil {
				return err
			}
			if cols < 1 || cols > song.MaxEffectColumns {
				return r.Invariantf("effect column count must be 1-%d, got %d", song.MaxEffectColumns, cols)
			}
			c.EffectColumns = cols
		}

		r.StartSubStage("order")
		for o, idx := range s.Orders[ch] {
			r.SetSubStageIndex(o)
			p := c.Pattern(int(idx), s.PatternLength)
			for row := range p.Rows {
				p.Rows[row] = d.readRow(ch, c.EffectColumns)
			}
			if err := r.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// historicValue maps an 8-bit field of the historic row format.
func historicValue(b uint8) int16 {
	if b == 0x80 || b == 0xff {
		return song.Empty
	}
	return int16(b)
}

func (d *decoder) readRow(ch, cols int) song.Row {
	r := d.r
	row := song.Row{Effects: make([]song.Effect, cols)}

	switch d.rules.row {
	case rowHistoric:
		row.Note = int16(r.ReadU8("note"))
		row.Octave = int16(int8(r.ReadU8("octave")))
		row.Volume = historicValue(r.ReadU8("volume"))
		for k := range row.Effects {
			row.Effects[k].Cmd = historicValue(r.ReadU8("effect"))
			row.Effects[k].Value = historicValue(r.ReadU8("effect value"))
		}
		row.Instrument = song.Empty
		if d.version >= 0x06 {
			row.Instrument = historicValue(r.ReadU8("instrument"))
		}
	case rowCurrent:
		row.Note = r.ReadI16("note")
		row.Octave = r.ReadI16("octave")
		row.Volume = r.ReadI16("volume")
		for k := range row.Effects {
			row.Effects[k].Cmd = r.ReadI16("effect")
			row.Effects[k].Value = r.ReadI16("effect value")
		}
		row.Instrument = r.ReadI16("instrument")
	}

	if row.Note == song.NoteEmpty && row.Octave != 0 {
		row.Note = 12
		row.Octave--
	}
	if row.Note >= 1 && row.Note <= 12 {
		row.Octave += d.prof.octave(ch)
	}
	if d.prof.smsVolumeShift && row.Volume > 0 {
		row.Volume >>= 4
	}
	if ch == d.prof.fdsChannel && row.Instrument >= 0 && int(row.Instrument) < len(d.song.Instruments) {
		d.song.Instruments[row.Instrument].Type = song.InsFDS
	}
	return row
}
