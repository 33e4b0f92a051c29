package audio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
)

func TestWriteAndDecodeWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")

	const sr = 22050
	sig := &Signal{SampleRate: sr, Samples: make([]float64, sr/2)}
	for i := range sig.Samples {
		sig.Samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/sr)
	}

	if err := WriteWAV(path, sig); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	decoded, err := Decode(path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.SampleRate != sr {
		t.Errorf("Expected sample rate %d, got %d", sr, decoded.SampleRate)
	}
	if len(decoded.Samples) != len(sig.Samples) {
		t.Fatalf("Expected %d samples, got %d", len(sig.Samples), len(decoded.Samples))
	}
	for i := range sig.Samples {
		assert.InDelta(t, sig.Samples[i], decoded.Samples[i], 1.0/16384, "sample %d", i)
	}
	assert.InDelta(t, 0.5, decoded.Duration(), 1e-9)
}

func TestWriteWAVClips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := WriteWAV(path, &Signal{SampleRate: 8000, Samples: []float64{2, -2, 0}}); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	decoded, err := Decode(path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	assert.InDelta(t, 1, decoded.Samples[0], 1e-3)
	assert.InDelta(t, -1, decoded.Samples[1], 1e-3)
	assert.InDelta(t, 0, decoded.Samples[2], 1e-9)
}

func TestDecodeStereoDownmix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	enc := wav.NewEncoder(file, 16000, 16, 2, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 16000},
		Data:           []int{16384, 0, -16384, -16384, 8192, 8192},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}

	decoded, err := Decode(path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", decoded.SampleRate)
	}
	if len(decoded.Samples) != 3 {
		t.Fatalf("Expected 3 mono samples, got %d", len(decoded.Samples))
	}
	assert.InDelta(t, 0.25, decoded.Samples[0], 1e-9)
	assert.InDelta(t, -0.5, decoded.Samples[1], 1e-9)
	assert.InDelta(t, 0.25, decoded.Samples[2], 1e-9)
}

func TestDecodeMissingFile(t *testing.T) {
	_, err := Decode(filepath.Join(t.TempDir(), "missing.wav"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}

func TestPCMToFloat(t *testing.T) {
	tests := []struct {
		name     string
		value    int
		bitDepth int
		expected float64
	}{
		{name: "16-bit half scale", value: 16384, bitDepth: 16, expected: 0.5},
		{name: "24-bit negative full scale", value: -8388608, bitDepth: 24, expected: -1},
		{name: "8-bit midpoint is silence", value: 128, bitDepth: 8, expected: 0},
		{name: "8-bit low", value: 0, bitDepth: 8, expected: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, pcmToFloat(tt.value, tt.bitDepth), 1e-12)
		})
	}
}

func TestSignalDurationZeroRate(t *testing.T) {
	s := &Signal{Samples: make([]float64, 10)}
	if d := s.Duration(); d != 0 {
		t.Errorf("Expected zero duration, got %f", d)
	}
}
