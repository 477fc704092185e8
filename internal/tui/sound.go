package tui

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gravitas-games/cachegrid/internal/merge"
)

// SampleRate is the rate chime tones are generated at.
const SampleRate = beep.SampleRate(44100)

const noteLength = 60 * time.Millisecond

// Tone returns the cue for an action result, or nil for silence.
func Tone(res merge.Result) beep.Streamer {
	var freqs []float64
	switch {
	case res.Won:
		freqs = []float64{523.25, 659.25, 783.99, 1046.5}
	case res.Outcome == merge.Merged:
		freqs = []float64{880, 1320}
	case res.Outcome == merge.Taken || res.Outcome == merge.Placed:
		freqs = []float64{660}
	case res.Outcome == merge.Rejected || res.Outcome == merge.TooFar:
		freqs = []float64{220}
	default:
		return nil
	}

	notes := make([]beep.Streamer, 0, len(freqs))
	for _, f := range freqs {
		sine, err := generators.SineTone(SampleRate, f)
		if err != nil {
			return nil
		}
		notes = append(notes, beep.Take(SampleRate.N(noteLength), sine))
	}
	return beep.Seq(notes...)
}

// Chime plays the cue for each result through play.
func Chime(play func(beep.Streamer)) func(merge.Result) {
	return func(res merge.Result) {
		if s := Tone(res); s != nil {
			play(s)
		}
	}
}
