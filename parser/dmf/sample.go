package dmf

import (
	"github.com/QEStudios/TrackerImporter/parser/bin"
	"github.com/QEStudios/TrackerImporter/song"
)

func (d *decoder) readSamples() error {
	r := d.r
	if r.Remaining() == 0 {
		// Some writers stop right before the sample count when there are no samples.
		d.warnf(bin.WarnShortRead, "file ends before the sample section, assuming no samples")
		return nil
	}

	count := int(r.ReadU8("sample count"))
	if d.version < 0x0b && count > 0 {
		r.Skip(1, "unknown")
	}
	d.song.Samples = make([]*song.Sample, 0, count)
	for i := 0; i < count; i++ {
		r.SetStageIndex(i)
		smp, err := d.readSample()
		if err != nil {
			return err
		}
		if err := r.Err(); err != nil {
			return err
		}
		d.song.Samples = append(d.song.Samples, smp)
	}
	return nil
}

func (d *decoder) readSample() (*song.Sample, error) {
	r := d.r
	length := int(r.ReadI32("length"))
	if err := r.Err(); err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, r.Invariantf("sample length is negative (%d)", length)
	}

	smp := &song.Sample{
		Rate:   song.LegacyRate(0),
		Depth:  song.Depth16,
		Pitch:  song.DefaultPitch,
		Volume: song.DefaultVolume,
	}
	if d.version >= 0x17 {
		smp.Name = r.ReadPString("name")
	}
	if d.version >= 0x0b {
		smp.Rate = song.LegacyRate(r.ReadU8("rate"))
		smp.Pitch = int(r.ReadU8("pitch"))
		smp.Volume = int(r.ReadU8("amplitude"))
		if r.Err() == nil && smp.Pitch > song.MaxPitch {
			return nil, r.Invariantf("sample pitch must be 0-%d, got %d", song.MaxPitch, smp.Pitch)
		}
	}
	if d.version >= 0x16 {
		depth := r.ReadU8("bits")
		switch {
		case r.Err() != nil:
		case depth == 8:
			smp.Depth = song.Depth8
		case depth == 16:
			smp.Depth = song.Depth16
		default:
			d.warnf(bin.WarnLossy, "sample %d has unsupported depth %d, reading as 16-bit", len(d.song.Samples), depth)
		}
	}

	trim := false
	var cutStart, cutEnd int
	if d.version >= 0x1b {
		cutStart = int(r.ReadI32("cut start"))
		cutEnd = int(r.ReadI32("cut end"))
		if err := r.Err(); err != nil {
			return nil, err
		}
		if cutStart < 0 || cutStart > cutEnd || cutEnd > length {
			return nil, r.Invariantf("cut window [%d, %d) is outside the sample (%d samples)", cutStart, cutEnd, length)
		}
		trim = cutStart != 0 || cutEnd != length
	}

	switch d.rules.payload {
	case payloadADPCM:
		packed := r.ReadBytes(length, "ADPCM data")
		if err := r.Err(); err != nil {
			return nil, err
		}
		smp.Depth = song.DepthYMZ
		smp.DataADPCM = song.ExpandNibbles(packed)
		smp.Data16 = song.DecodeYMZ(smp.DataADPCM)
		smp.Samples = len(smp.Data16)
	case payloadByteLength16, payloadWordLength16:
		n := length
		if d.rules.payload == payloadWordLength16 {
			n = length * 2
		}
		buf := r.ReadBytes(n, "sample data")
		if err := r.Err(); err != nil {
			return nil, err
		}
		// Old files only fill the first half of the word buffer.
		raw := make([]int16, length)
		words := bin.NewReader(buf)
		for k := range raw {
			if words.Remaining() < 2 {
				break
			}
			raw[k] = words.ReadI16("sample word")
		}
		if err := smp.Render(raw); err != nil {
			return nil, r.Invariantf("%v", err)
		}
	}

	if trim {
		if err := smp.Trim(cutStart, cutEnd); err != nil {
			return nil, r.Invariantf("%v", err)
		}
	}
	return smp, nil
}
