package progress

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readProgress(t *testing.T, path string) float64 {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read progress file: %v", err)
	}
	var p struct {
		Progress float64 `json:"progress"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("decode progress file: %v", err)
	}
	return p.Progress
}

func TestFileReporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	r := NewFileReporter(path)

	r.Report(0.0)
	if got := readProgress(t, path); got != 0.0 {
		t.Errorf("expected 0.0, got %f", got)
	}

	r.Report(0.1)
	r.Report(0.9)
	if got := readProgress(t, path); got != 0.9 {
		t.Errorf("expected 0.9, got %f", got)
	}

	r.Report(1.0)
	if got := readProgress(t, path); got != 1.0 {
		t.Errorf("expected 1.0, got %f", got)
	}
	if r.Last() != 1.0 {
		t.Errorf("expected last 1.0, got %f", r.Last())
	}
}

func TestFileReporterDropsRegressions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	r := NewFileReporter(path)

	r.Report(0.5)
	r.Report(0.3) // regression, must not be written
	if got := readProgress(t, path); got != 0.5 {
		t.Errorf("expected 0.5 after regression, got %f", got)
	}

	r.Report(0.5) // no advance, no rewrite needed
	if got := readProgress(t, path); got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestFileReporterClamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	r := NewFileReporter(path)

	r.Report(-0.5)
	if got := readProgress(t, path); got != 0.0 {
		t.Errorf("expected clamp to 0.0, got %f", got)
	}

	r.Report(1.5)
	if got := readProgress(t, path); got != 1.0 {
		t.Errorf("expected clamp to 1.0, got %f", got)
	}
}

func TestFileReporterWriteFailureNonFatal(t *testing.T) {
	// Directory path cannot be written as a file; Report must not panic
	// and must not advance the last value.
	r := NewFileReporter(t.TempDir())
	r.Report(0.5)
	if r.Last() != -1 {
		t.Errorf("expected last to stay -1 after failed write, got %f", r.Last())
	}
}

func TestNop(t *testing.T) {
	var r Reporter = Nop{}
	r.Report(0.5) // must not panic
}
