package song

// MaxWaveLen is the longest wavetable a module may store.
const MaxWaveLen = 65

// A single wavetable.
type Wavetable struct {
	Data []int32
	Max  int32 // Largest value a step can take; also the bit mask applied on load.
}

// Len returns the number of steps in the wavetable.
func (w *Wavetable) Len() int { return len(w.Data) }

// NewWavetable builds a wavetable for chip c. Every value is masked with the
// chip's maximum, so out-of-range input wraps instead of overflowing.
func NewWavetable(values []int32, c Chip) *Wavetable {
	limit := c.WaveMax()
	data := make([]int32, len(values))
	for i, v := range values {
		data[i] = v & limit
	}
	return &Wavetable{Data: data, Max: limit}
}

// DropEmptyWaveQuirk handles a quirk of some old modules which store a
// single zero-length wavetable in place of an empty list. It returns the
// list with that placeholder removed.
func DropEmptyWaveQuirk(waves []*Wavetable) []*Wavetable {
	if len(waves) == 1 && waves[0].Len() == 0 {
		return nil
	}
	return waves
}
