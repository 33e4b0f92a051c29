package audio

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrNoAudioStream is returned when an input file has no audio stream.
var ErrNoAudioStream = errors.New("no audio stream found")

// Signal is a mono waveform at its native sampling rate. Samples are in [-1, 1].
type Signal struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the signal length in seconds.
func (s *Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Decoder turns audio files into mono signals without resampling. WAV files
// are read natively; anything else goes through ffprobe and ffmpeg.
type Decoder struct {
	FFmpegBin  string
	FFprobeBin string
}

// NewDecoder returns a decoder using the ffmpeg and ffprobe found on PATH.
func NewDecoder() *Decoder {
	return &Decoder{
		FFmpegBin:  "ffmpeg",
		FFprobeBin: "ffprobe",
	}
}

// Decode loads an audio file at its native sampling rate, downmixed to mono.
func Decode(path string) (*Signal, error) {
	return NewDecoder().Decode(path)
}

// Decode loads an audio file at its native sampling rate, downmixed to mono.
func (d *Decoder) Decode(path string) (*Signal, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		sig, err := decodeWAV(path)
		if err == nil {
			return sig, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		// Float or compressed WAV payloads are left to ffmpeg.
		slog.Debug("Native WAV decode failed, falling back to ffmpeg", "path", path, "err", err)
	}
	return d.decodeFFmpeg(path)
}

func decodeWAV(path string) (*Signal, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("unsupported wav audio format %d: %s", dec.WavAudioFormat, path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read pcm data: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	bitDepth := int(dec.BitDepth)

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += pcmToFloat(buf.Data[i*channels+c], bitDepth)
		}
		samples[i] = sum / float64(channels)
	}

	slog.Debug("Decoded wav file",
		"path", path,
		"sample_rate", buf.Format.SampleRate,
		"channels", channels,
		"bit_depth", bitDepth,
		"frames", frames)

	return &Signal{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

func pcmToFloat(v, bitDepth int) float64 {
	if bitDepth == 8 {
		// 8-bit WAV is unsigned
		return float64(v-128) / 128
	}
	return float64(v) / math.Exp2(float64(bitDepth-1))
}

// StreamInfo is the subset of ffprobe output needed for decoding.
type StreamInfo struct {
	FormatName string
	Duration   float64
	SampleRate int
	Channels   int
}

// Inspect reads the container and first audio stream parameters with ffprobe.
func (d *Decoder) Inspect(path string) (StreamInfo, error) {
	cmd := exec.Command(d.FFprobeBin, "-v", "error", "-show_format", "-show_streams", "-of", "json", path)
	out, err := cmd.Output()
	if err != nil {
		return StreamInfo{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var ff struct {
		Format struct {
			FormatName string `json:"format_name"`
			Duration   string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType  string `json:"codec_type"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &ff); err != nil {
		return StreamInfo{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := StreamInfo{FormatName: ff.Format.FormatName}
	info.Duration, _ = strconv.ParseFloat(strings.TrimSpace(ff.Format.Duration), 64)
	for _, s := range ff.Streams {
		if s.CodecType != "audio" {
			continue
		}
		info.SampleRate, _ = strconv.Atoi(strings.TrimSpace(s.SampleRate))
		info.Channels = s.Channels
		return info, nil
	}
	return StreamInfo{}, fmt.Errorf("%s: %w", path, ErrNoAudioStream)
}

func (d *Decoder) decodeFFmpeg(path string) (*Signal, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	info, err := d.Inspect(path)
	if err != nil {
		return nil, err
	}
	if info.SampleRate <= 0 {
		return nil, fmt.Errorf("ffprobe reported no sample rate for %s", path)
	}

	// No -ar: keep the native sampling rate.
	cmd := exec.Command(d.FFmpegBin,
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", "1",
		"-loglevel", "error",
		"pipe:1",
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}

	samples := make([]float64, len(out)/4)
	for i := range samples {
		samples[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:])))
	}

	slog.Debug("Decoded audio with ffmpeg",
		"path", path,
		"format", info.FormatName,
		"sample_rate", info.SampleRate,
		"frames", len(samples))

	return &Signal{Samples: samples, SampleRate: info.SampleRate}, nil
}

// WriteWAV writes a mono signal as 16-bit PCM, clipping to [-1, 1].
func WriteWAV(path string, sig *Signal) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wav file: %w", err)
	}
	defer file.Close()

	const bitDepth = 16
	data := make([]int, len(sig.Samples))
	for i, s := range sig.Samples {
		s = math.Max(-1, math.Min(1, s))
		data[i] = int(math.Round(s * 32767))
	}

	enc := wav.NewEncoder(file, sig.SampleRate, bitDepth, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sig.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav file: %w", err)
	}
	return nil
}
