// Package progress reports run progress as milestone fractions. The file
// reporter overwrites a small JSON document that UIs poll while a
// diarization run is in flight.
package progress

import (
	"encoding/json"
	"os"

	"github.com/kbukum/diarize/logger"
)

// Reporter receives progress updates in [0,1].
type Reporter interface {
	Report(progress float64)
}

// Nop is a Reporter that discards all updates.
type Nop struct{}

// Report implements Reporter.
func (Nop) Report(float64) {}

// payload is the document written to the progress file.
type payload struct {
	Progress float64 `json:"progress"`
}

// FileReporter writes progress updates to a JSON file. Values are
// clamped to [0,1]; regressions are dropped so consumers never observe
// progress moving backwards. Write failures are logged, never fatal.
type FileReporter struct {
	path string
	last float64
	log  *logger.Logger
}

// NewFileReporter creates a reporter writing to path.
func NewFileReporter(path string) *FileReporter {
	return &FileReporter{
		path: path,
		last: -1,
		log:  logger.Get("progress"),
	}
}

// Report writes the progress value if it advances the last written one.
func (r *FileReporter) Report(progress float64) {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	if progress <= r.last {
		return
	}

	data, err := json.Marshal(payload{Progress: progress})
	if err != nil {
		r.log.Warn("marshal progress", logger.Fields("error", err.Error()))
		return
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		r.log.Warn("write progress file", logger.Fields(
			"path", r.path,
			"error", err.Error(),
		))
		return
	}
	r.last = progress
}

// Last returns the last successfully written progress value, or -1 when
// nothing has been written yet.
func (r *FileReporter) Last() float64 {
	return r.last
}
