package dmf

import (
	"slices"

	"github.com/QEStudios/TrackerImporter/song"
)

// A single compatibility flag assignment, applied to the versions
// [minVersion, maxVersion) of the listed chips (all chips if nil).
type compatRule struct {
	flag                   string
	value                  int
	minVersion, maxVersion int
	chips                  []song.Chip
}

func always(flag string, value int) compatRule {
	return compatRule{flag: flag, value: value, minVersion: 0, maxVersion: versionCeiling}
}

func boolValue(v bool) int {
	if v {
		return 1
	}
	return 0
}

// Rules are applied in order, so later entries override earlier ones.
var compatRules = []compatRule{
	// Playback behaviour of every DefleMask release.
	always("limitSlides", boolValue(true)),
	always("linearPitch", 1),
	always("loopModality", 0),
	always("properNoiseLayout", boolValue(false)),
	always("waveDutyIsVol", boolValue(false)),
	always("resetMacroOnPorta", boolValue(false)),
	always("legacyVolumeSlides", boolValue(true)),
	always("compatibleArpeggio", boolValue(true)),
	always("noteOffResetsSlides", boolValue(true)),
	always("targetResetsSlides", boolValue(true)),
	always("arpNonPorta", boolValue(false)),
	always("algMacroBehavior", boolValue(false)),
	always("brokenShortcutSlides", boolValue(false)),
	always("ignoreDuplicateSlides", boolValue(true)),
	always("brokenDACMode", boolValue(true)),
	always("oneTickCut", boolValue(false)),
	always("newInsTriggersInPorta", boolValue(true)),
	always("arp0Reset", boolValue(true)),
	always("brokenSpeedSel", boolValue(true)),
	always("noSlidesOnFirstTick", boolValue(false)),
	always("rowResetsArpPos", boolValue(false)),
	always("ignoreJumpAtEnd", boolValue(true)),
	always("buggyPortaAfterSlide", boolValue(true)),
	always("gbInsAffectsEnvelope", boolValue(true)),
	always("ignoreDACModeOutsideIntendedChannel", boolValue(false)),
	always("e1e2AlsoTakePriority", boolValue(true)),
	always("fbPortaPause", boolValue(true)),
	always("snDutyReset", boolValue(true)),
	always("oldOctaveBoundary", boolValue(false)),
	always("noOPN2Vol", boolValue(true)),
	always("newVolumeScaling", boolValue(false)),
	always("volMacroLinger", boolValue(false)),
	always("brokenOutVol", boolValue(true)),
	always("brokenOutVol2", boolValue(true)),
	always("e1e2StopOnSameNote", boolValue(true)),
	always("brokenPortaArp", boolValue(false)),
	always("snNoLowPeriods", boolValue(true)),
	always("disableSampleMacro", boolValue(true)),
	always("preNoteNoEffect", boolValue(true)),
	always("delayBehavior", 0),
	always("jumpTreatment", 2),
	always("oldAlwaysSetVolume", boolValue(true)),

	// Version 25 and later.
	{flag: "waveDutyIsVol", value: boolValue(true), minVersion: 25, maxVersion: versionCeiling},
	{flag: "legacyVolumeSlides", value: boolValue(false), minVersion: 25, maxVersion: versionCeiling},
}

// ResolveCompat returns the compatibility flags for a module of the given
// version and system. With skip set, it returns the defaults.
func ResolveCompat(version uint8, sys song.Chip, skip bool) song.CompatFlags {
	flags := song.DefaultCompatFlags()
	if skip {
		return flags
	}
	for _, rule := range compatRules {
		if int(version) < rule.minVersion || int(version) >= rule.maxVersion {
			continue
		}
		if rule.chips != nil && !slices.Contains(rule.chips, sys) {
			continue
		}
		flags[rule.flag] = rule.value
	}
	return flags
}
