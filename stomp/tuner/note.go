package tuner

import (
	"fmt"
	"math"
)

// ReferenceA4 is the concert pitch in Hz.
const ReferenceA4 = 440.0

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Nearest returns the MIDI note closest to freq and the deviation from it
// in cents.
func Nearest(freq float64) (note int, cents float64) {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return 0, 0
	}
	exact := 69 + 12*math.Log2(freq/ReferenceA4)
	note = int(math.Round(exact))
	return note, 100 * (exact - float64(note))
}

// NoteFrequency returns the equal-tempered frequency of a MIDI note.
func NoteFrequency(note int) float64 {
	return ReferenceA4 * math.Pow(2, float64(note-69)/12)
}

// NoteName formats a MIDI note as a name with octave, e.g. "A4".
func NoteName(note int) string {
	octave := note/12 - 1
	idx := note % 12
	if idx < 0 {
		idx += 12
		octave--
	}
	return fmt.Sprintf("%s%d", noteNames[idx], octave)
}
