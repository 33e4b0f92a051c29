// Package sonify renders beat times as audible clicks over the source audio.
package sonify

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/beatbench/internal/audio"
	"github.com/lehigh-university-libraries/beatbench/internal/dataset"
)

const (
	// ClickFrequency is the pitch of a click in Hz.
	ClickFrequency = 1000.0
	// ClickDuration is the length of a click in seconds.
	ClickDuration = 0.1
	clickDecay    = 0.01
)

// Click returns a single exponentially decaying sine click at sample rate sr.
func Click(sr int) []float64 {
	n := int(ClickDuration * float64(sr))
	click := make([]float64, n)
	for i := range click {
		t := float64(i) / float64(sr)
		click[i] = math.Sin(2*math.Pi*ClickFrequency*t) * math.Exp(-float64(i)/(float64(sr)*clickDecay))
	}
	return click
}

// Clicks renders a click at every time in times. The output has length
// samples; length <= 0 sizes it to fit the last click. A click that runs past
// the end is cut off, and a later click overwrites an earlier overlapping one.
func Clicks(times []float64, sr, length int) []float64 {
	click := Click(sr)
	if length <= 0 {
		last := 0.0
		for _, t := range times {
			last = max(last, t)
		}
		length = int(last*float64(sr)) + len(click) + 1
	}

	out := make([]float64, length)
	for _, t := range times {
		start := int(t * float64(sr))
		if start < 0 || start >= length {
			continue
		}
		copy(out[start:], click)
	}
	return out
}

// Mix adds clicks to signal. Clicks are cut or zero padded to the signal's
// length, and the sum is scaled back into [-1, 1] if it clips.
func Mix(signal, clicks []float64) []float64 {
	out := make([]float64, len(signal))
	copy(out, signal)
	n := min(len(signal), len(clicks))
	peak := 0.0
	for i := range out {
		if i < n {
			out[i] += clicks[i]
		}
		peak = max(peak, math.Abs(out[i]))
	}
	if peak > 1 {
		for i := range out {
			out[i] /= peak
		}
	}
	return out
}

// Decoder loads audio files as mono signals at their native rate.
type Decoder interface {
	Decode(path string) (*audio.Signal, error)
}

// TrackSource looks tracks up by id.
type TrackSource interface {
	Lookup(id string) (*dataset.Track, error)
}

// Previews are the files written for one track.
type Previews struct {
	Estimated string
	Reference string
}

// Sonifier writes click previews of tracks into a directory.
type Sonifier struct {
	Decoder Decoder
	OutDir  string
}

// NewSonifier creates a sonifier writing into outDir.
func NewSonifier(outDir string) *Sonifier {
	return &Sonifier{
		Decoder: audio.NewDecoder(),
		OutDir:  outDir,
	}
}

// SonifyTrack renders the track's audio mixed with clicks at its estimated
// beats and, separately, at its reference beats, writing
// <id>_estimated.wav and <id>_reference.wav.
func (s *Sonifier) SonifyTrack(trackID string, estimated map[string][]float64, tracks TrackSource) (*Previews, error) {
	track, err := tracks.Lookup(trackID)
	if err != nil {
		return nil, err
	}
	beats, ok := estimated[trackID]
	if !ok {
		return nil, fmt.Errorf("no estimated beats for track %s", trackID)
	}

	sig, err := s.Decoder.Decode(track.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", track.AudioPath, err)
	}

	if err := os.MkdirAll(s.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	previews := &Previews{
		Estimated: filepath.Join(s.OutDir, trackID+"_estimated.wav"),
		Reference: filepath.Join(s.OutDir, trackID+"_reference.wav"),
	}
	if err := s.render(sig, beats, previews.Estimated); err != nil {
		return nil, err
	}
	if err := s.render(sig, track.Beats, previews.Reference); err != nil {
		return nil, err
	}

	slog.Info("Sonified track",
		"track", trackID,
		"estimated_beats", len(beats),
		"reference_beats", len(track.Beats),
		"estimated", previews.Estimated,
		"reference", previews.Reference)
	return previews, nil
}

func (s *Sonifier) render(sig *audio.Signal, beats []float64, path string) error {
	clicks := Clicks(beats, sig.SampleRate, len(sig.Samples))
	mixed := &audio.Signal{
		Samples:    Mix(sig.Samples, clicks),
		SampleRate: sig.SampleRate,
	}
	if err := audio.WriteWAV(path, mixed); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SonifyTrack writes click previews for one track into outDir with the default decoder.
func SonifyTrack(trackID string, estimated map[string][]float64, tracks TrackSource, outDir string) (*Previews, error) {
	return NewSonifier(outDir).SonifyTrack(trackID, estimated, tracks)
}
