package dmf

import (
	"slices"

	"github.com/QEStudios/TrackerImporter/song"
)

// A decode rule that applies to the versions [min, max) of the given chips.
// A nil chip list matches every chip.
type versionRule[T any] struct {
	min, max int
	chips    []song.Chip
	rule     T
}

// lookup returns the rule of the first entry matching version and sys.
func lookup[T any](table []versionRule[T], version uint8, sys song.Chip) (T, bool) {
	for _, e := range table {
		if int(version) < e.min || int(version) >= e.max {
			continue
		}
		if e.chips != nil && !slices.Contains(e.chips, sys) {
			continue
		}
		return e.rule, true
	}
	var zero T
	return zero, false
}

// Exclusive upper bound for rules that apply to every later version.
const versionCeiling = 0x100

type headerRule int

const (
	headerNameAuthor headerRule = iota
	headerMobile                // 13 text fields of the YMU759 mobile format.
)

var headerRules = []versionRule[headerRule]{
	{0, 0x10, []song.Chip{song.ChipYMU759}, headerMobile},
	{0, versionCeiling, nil, headerNameAuthor},
}

type timingRule int

const (
	timingBase         timingRule = iota // time base, speed, pattern length, orders.
	timingArpSpeed                       // + arpeggio tick speed.
	timingSpeedPair                      // + second speed, NTSC and custom tempo flags.
	timingCustomHz                       // + custom tick rate string.
	timingHighlight                      // + row highlights.
	timingNoArpSpeed                     // arpeggio tick speed removed.
	timingLongPatterns                   // 32-bit pattern length.
)

type timingFields struct {
	highlight, speedPair, customHz, arpSpeed, longPatterns bool
}

var timingLayouts = [...]timingFields{
	timingBase:         {},
	timingArpSpeed:     {arpSpeed: true},
	timingSpeedPair:    {arpSpeed: true, speedPair: true},
	timingCustomHz:     {arpSpeed: true, speedPair: true, customHz: true},
	timingHighlight:    {arpSpeed: true, speedPair: true, customHz: true, highlight: true},
	timingNoArpSpeed:   {speedPair: true, customHz: true, highlight: true},
	timingLongPatterns: {speedPair: true, customHz: true, highlight: true, longPatterns: true},
}

var timingRules = []versionRule[timingRule]{
	{0, 0x04, nil, timingBase},
	{0x04, 0x08, nil, timingArpSpeed},
	{0x08, 0x0b, nil, timingSpeedPair},
	{0x0b, 0x0d, nil, timingCustomHz},
	{0x0d, 0x14, nil, timingHighlight},
	{0x14, 0x18, nil, timingNoArpSpeed},
	{0x18, versionCeiling, nil, timingLongPatterns},
}

type opLayout int

const (
	opLegacyPacked opLayout = iota // EGT and KSR share one byte.
	opLegacySplit                  // EGT and KSR stored separately.
	opModern                       // OPN-only fields.
	opModernPreset                 // As opModern, with the OPLL preset in operator 0's DT2.
)

var opllSystems = []song.Chip{song.ChipSMSOPLL, song.ChipNESVRC7}

var opLayoutRules = []versionRule[opLayout]{
	{0, 0x11, nil, opLegacyPacked},
	{0x11, 0x13, nil, opLegacySplit},
	{0x13, versionCeiling, opllSystems, opModernPreset},
	{0x13, versionCeiling, nil, opModern},
}

type rowFormat int

const (
	rowHistoric rowFormat = iota // 8-bit fields, 0x80 and 0xff mean empty.
	rowCurrent                   // 16-bit fields, -1 means empty.
)

var rowRules = []versionRule[rowFormat]{
	{0, 0x09, nil, rowHistoric},
	{0x09, versionCeiling, nil, rowCurrent},
}

type samplePayload int

const (
	payloadADPCM        samplePayload = iota // length bytes of nibble-swapped YMZ ADPCM.
	payloadByteLength16                      // length bytes into a buffer of length 16-bit words.
	payloadWordLength16                      // length 16-bit words.
)

var samplePayloadRules = []versionRule[samplePayload]{
	{0, 0x06, nil, payloadADPCM},
	{0x06, 0x0b, nil, payloadByteLength16},
	{0x0b, versionCeiling, nil, payloadWordLength16},
}

// rules holds every per-section rule selected for one file.
type rules struct {
	header  headerRule
	timing  timingFields
	op      opLayout
	row     rowFormat
	payload samplePayload
}

// selectRules picks the rule of every section for version and sys.
// It reports false if any table has a gap.
func selectRules(version uint8, sys song.Chip) (rules, bool) {
	var rs rules
	var ok [5]bool
	rs.header, ok[0] = lookup(headerRules, version, sys)
	var t timingRule
	t, ok[1] = lookup(timingRules, version, sys)
	rs.timing = timingLayouts[t]
	rs.op, ok[2] = lookup(opLayoutRules, version, sys)
	rs.row, ok[3] = lookup(rowRules, version, sys)
	rs.payload, ok[4] = lookup(samplePayloadRules, version, sys)
	return rs, !slices.Contains(ok[:], false)
}
