package song

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// CompatFlags controls playback quirks. Boolean flags are stored as 0 or 1;
// a few flags are small enumerations.
type CompatFlags map[string]int

var defaultCompatFlags = map[string]int{
	"limitSlides":                         0,
	"linearPitch":                         2,
	"loopModality":                        2,
	"properNoiseLayout":                   1,
	"waveDutyIsVol":                       0,
	"resetMacroOnPorta":                   0,
	"legacyVolumeSlides":                  0,
	"compatibleArpeggio":                  0,
	"noteOffResetsSlides":                 1,
	"targetResetsSlides":                  1,
	"arpNonPorta":                         0,
	"algMacroBehavior":                    0,
	"brokenShortcutSlides":                0,
	"ignoreDuplicateSlides":               0,
	"brokenDACMode":                       0,
	"oneTickCut":                          0,
	"newInsTriggersInPorta":               1,
	"arp0Reset":                           1,
	"brokenSpeedSel":                      0,
	"noSlidesOnFirstTick":                 0,
	"rowResetsArpPos":                     0,
	"ignoreJumpAtEnd":                     0,
	"buggyPortaAfterSlide":                0,
	"gbInsAffectsEnvelope":                1,
	"ignoreDACModeOutsideIntendedChannel": 0,
	"e1e2AlsoTakePriority":                0,
	"fbPortaPause":                        0,
	"snDutyReset":                         0,
	"oldOctaveBoundary":                   0,
	"noOPN2Vol":                           0,
	"newVolumeScaling":                    1,
	"volMacroLinger":                      1,
	"brokenOutVol":                        0,
	"brokenOutVol2":                       0,
	"e1e2StopOnSameNote":                  0,
	"brokenPortaArp":                      0,
	"snNoLowPeriods":                      0,
	"disableSampleMacro":                  0,
	"delayBehavior":                       2,
	"jumpTreatment":                       0,
	"preNoteNoEffect":                     0,
	"oldAlwaysSetVolume":                  0,
}

// DefaultCompatFlags returns every flag the engine reads, set to the
// behaviour of a song made with a current tracker.
func DefaultCompatFlags() CompatFlags {
	return maps.Clone(defaultCompatFlags)
}

// CompatFlagNames returns the name of every known flag, sorted.
func CompatFlagNames() []string {
	return slices.Sorted(maps.Keys(defaultCompatFlags))
}

// Bool returns a boolean flag.
func (f CompatFlags) Bool(name string) bool { return f[name] != 0 }

// Int returns an enumerated flag.
func (f CompatFlags) Int(name string) int { return f[name] }

// SetBool stores a boolean flag.
func (f CompatFlags) SetBool(name string, v bool) {
	if v {
		f[name] = 1
	} else {
		f[name] = 0
	}
}

// String renders the flags as sorted key=value lines, booleans as true/false.
func (f CompatFlags) String() string {
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(f)) {
		b.WriteString(k)
		b.WriteByte('=')
		if isEnumFlag(k) {
			b.WriteString(strconv.Itoa(f[k]))
		} else {
			b.WriteString(strconv.FormatBool(f[k] != 0))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func isEnumFlag(name string) bool {
	switch name {
	case "linearPitch", "loopModality", "delayBehavior", "jumpTreatment":
		return true
	default:
		return false
	}
}
