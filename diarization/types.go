package diarization

// Request holds parameters for a diarization call.
type Request struct {
	// AudioPath is the path to the audio file to diarize.
	AudioPath string `json:"audio_path"`
	// Model is the pretrained pipeline identifier
	// (e.g. "pyannote/speaker-diarization-3.1").
	Model string `json:"model,omitempty"`
	// NumSpeakers is the exact number of speakers (0 = auto-detect).
	NumSpeakers int `json:"num_speakers,omitempty"`
	// MinSpeakers is the minimum expected number of speakers.
	MinSpeakers int `json:"min_speakers,omitempty"`
	// MaxSpeakers is the maximum expected number of speakers.
	MaxSpeakers int `json:"max_speakers,omitempty"`
}

// Response holds the result of a diarization call.
type Response struct {
	// Segments contains speaker-attributed time segments in backend order.
	Segments []Segment `json:"segments"`
	// NumSpeakers is the number of distinct speakers detected.
	NumSpeakers int `json:"num_speakers"`
}

// Segment represents a speaker-attributed time range.
type Segment struct {
	// Speaker is the identified speaker label (e.g. "SPEAKER_00").
	Speaker string `json:"speaker"`
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds.
	End float64 `json:"end"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}
