// Package audio probes WAV files for duration, sample rate, and channel
// count. The probe is best-effort: callers degrade gracefully when a file
// cannot be decoded.
package audio

import (
	"os"

	"github.com/gopxl/beep/wav"

	"github.com/kbukum/diarize/errors"
)

// Info describes the basic properties of an audio file.
type Info struct {
	// Duration is the audio length in seconds.
	Duration float64 `json:"duration"`
	// SampleRate is the sample rate in Hz.
	SampleRate int `json:"sample_rate"`
	// Channels is the number of audio channels.
	Channels int `json:"channels"`
}

// Probe decodes the WAV header of the file at path and returns its
// duration, sample rate, and channel count.
func Probe(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NotFound("audio file", path).WithCause(err)
	}
	defer f.Close()

	streamer, format, err := wav.Decode(f)
	if err != nil {
		return nil, errors.InvalidFormat(path, "WAV").WithCause(err)
	}
	defer streamer.Close()

	info := &Info{
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
	}
	if format.SampleRate > 0 {
		info.Duration = float64(streamer.Len()) / float64(format.SampleRate)
	}
	return info, nil
}
