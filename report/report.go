// Package report reshapes raw diarization output into the result JSON
// written for downstream consumers: sorted segments, per-speaker
// statistics, and audio info.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/kbukum/diarize/audio"
	"github.com/kbukum/diarize/diarization"
	"github.com/kbukum/diarize/errors"
)

// Backends do not expose per-segment confidence, so every segment
// carries a fixed score.
const fixedConfidence = 1.0

// Segment is a speaker-attributed time range in the output report.
type Segment struct {
	SpeakerID  string  `json:"speaker_id"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
}

// SpeakerStats aggregates talk time for one speaker.
type SpeakerStats struct {
	TotalTime    float64 `json:"total_time"`
	SegmentCount int     `json:"segment_count"`
	Percentage   float64 `json:"percentage"`
}

// Results holds the reshaped diarization output.
type Results struct {
	Segments       []Segment               `json:"segments"`
	SpeakerCount   int                     `json:"speaker_count"`
	UniqueSpeakers []string                `json:"unique_speakers"`
	SpeakerStats   map[string]SpeakerStats `json:"speaker_stats"`
	TotalDuration  float64                 `json:"total_duration"`
}

// Report is the top-level output document. Error reports carry the
// success flag, the error message, and the structured error body when
// the failure was a coded application error.
type Report struct {
	Success     bool              `json:"success"`
	Results     *Results          `json:"results,omitempty"`
	AudioInfo   *audio.Info       `json:"audio_info,omitempty"`
	Error       string            `json:"error,omitempty"`
	ErrorDetail *errors.ErrorBody `json:"error_detail,omitempty"`
}

// Build reshapes a backend response into a success report. Segments must
// be well-formed (start non-negative, start <= end); a backend emitting
// anything else is a backend fault, not a report to publish. info may be
// nil when audio probing failed; total duration then falls back to the
// last segment end time.
func Build(resp *diarization.Response, info *audio.Info) (*Report, error) {
	segments := make([]Segment, len(resp.Segments))
	for i, seg := range resp.Segments {
		if seg.Start < 0 || seg.End < seg.Start {
			return nil, errors.InvalidFormat("diarization segments",
				"start_time >= 0 and start_time <= end_time").
				WithDetail("speaker_id", seg.Speaker).
				WithDetail("start_time", seg.Start).
				WithDetail("end_time", seg.End)
		}
		segments[i] = Segment{
			SpeakerID:  seg.Speaker,
			StartTime:  seg.Start,
			EndTime:    seg.End,
			Duration:   seg.End - seg.Start,
			Confidence: fixedConfidence,
		}
	}
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].StartTime < segments[j].StartTime
	})

	totalDuration := 0.0
	if info != nil && info.Duration > 0 {
		totalDuration = info.Duration
	} else if n := len(segments); n > 0 {
		totalDuration = segments[n-1].EndTime
	}

	stats := make(map[string]SpeakerStats)
	for _, seg := range segments {
		s := stats[seg.SpeakerID]
		s.TotalTime += seg.Duration
		s.SegmentCount++
		stats[seg.SpeakerID] = s
	}
	if totalDuration > 0 {
		for speaker, s := range stats {
			s.Percentage = s.TotalTime / totalDuration * 100
			stats[speaker] = s
		}
	}

	speakers := make([]string, 0, len(stats))
	for speaker := range stats {
		speakers = append(speakers, speaker)
	}
	sort.Strings(speakers)

	return &Report{
		Success:   true,
		AudioInfo: info,
		Results: &Results{
			Segments:       segments,
			SpeakerCount:   len(speakers),
			UniqueSpeakers: speakers,
			SpeakerStats:   stats,
			TotalDuration:  totalDuration,
		},
	}, nil
}

// Failure creates an error report from err.
func Failure(err error) *Report {
	rep := &Report{
		Success: false,
		Error:   err.Error(),
	}
	if appErr, ok := errors.AsAppError(err); ok {
		body := appErr.ToResponse().Error
		rep.ErrorDetail = &body
	}
	return rep
}

// WriteFile writes the report as indented JSON to path.
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Internal(fmt.Errorf("marshal report: %w", err))
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.StorageError(fmt.Errorf("write report to %s: %w", path, err))
	}
	return nil
}

// Status is the single-line JSON document printed on stdout when the
// run completes.
type Status struct {
	Status     string `json:"status"`
	OutputFile string `json:"output_file,omitempty"`
	Error      string `json:"error,omitempty"`
}

// WriteSuccessStatus prints a success status line to w.
func WriteSuccessStatus(w io.Writer, outputFile string) error {
	return json.NewEncoder(w).Encode(Status{Status: "success", OutputFile: outputFile})
}

// WriteErrorStatus prints an error status line to w.
func WriteErrorStatus(w io.Writer, err error) error {
	return json.NewEncoder(w).Encode(Status{Status: "error", Error: err.Error()})
}
