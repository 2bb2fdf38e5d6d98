package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/kbukum/diarize/cli"
	"github.com/kbukum/diarize/config"
	"github.com/kbukum/diarize/diarization"
	"github.com/kbukum/diarize/errors"
	"github.com/kbukum/diarize/history"
	"github.com/kbukum/diarize/logger"
)

type fakeProvider struct {
	resp        *diarization.Response
	err         error
	unavailable bool
	calls       int
	got         diarization.Request
}

func (f *fakeProvider) Name() string                         { return "fake" }
func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return !f.unavailable }
func (f *fakeProvider) Diarize(ctx context.Context, req diarization.Request) (*diarization.Response, error) {
	f.calls++
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func newTestApp(t *testing.T, fake *fakeProvider, stdout *bytes.Buffer) *App {
	t.Helper()

	reg := diarization.NewRegistry()
	reg.RegisterFactory("fake", func(cfg map[string]any) (diarization.Provider, error) {
		return fake, nil
	})

	cfg := &config.Config{}
	cfg.ApplyDefaults()

	return New(cfg, logger.NewDefault("test"), stdout).WithRegistry(reg)
}

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte("RIFF....WAVE"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testOptions(t *testing.T, audioPath string) *cli.Options {
	t.Helper()
	return &cli.Options{
		AudioPath:  audioPath,
		OutputPath: filepath.Join(t.TempDir(), "result.json"),
		Backend:    "fake",
		Model:      cli.DefaultModel,
	}
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return doc
}

func TestRunSuccess(t *testing.T) {
	fake := &fakeProvider{
		resp: &diarization.Response{
			Segments: []diarization.Segment{
				{Speaker: "SPEAKER_01", Start: 2.0, End: 4.0},
				{Speaker: "SPEAKER_00", Start: 0.0, End: 2.0},
			},
			NumSpeakers: 2,
		},
	}
	var stdout bytes.Buffer
	a := newTestApp(t, fake, &stdout)

	opts := testOptions(t, writeTempAudio(t))
	opts.MinSpeakers = 2
	opts.ProgressFile = filepath.Join(t.TempDir(), "progress.json")

	if err := a.Run(context.Background(), opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fake.calls != 1 {
		t.Errorf("expected exactly one backend call, got %d", fake.calls)
	}
	if fake.got.MinSpeakers != 2 {
		t.Errorf("speaker bounds not forwarded: %+v", fake.got)
	}

	doc := readJSON(t, opts.OutputPath)
	if doc["success"] != true {
		t.Error("expected success true in output file")
	}
	results, ok := doc["results"].(map[string]any)
	if !ok {
		t.Fatal("expected results object")
	}
	if results["speaker_count"] != float64(2) {
		t.Errorf("expected speaker_count 2, got %v", results["speaker_count"])
	}

	prog := readJSON(t, opts.ProgressFile)
	if prog["progress"] != float64(1.0) {
		t.Errorf("expected final progress 1.0, got %v", prog["progress"])
	}

	var status map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &status); err != nil {
		t.Fatalf("stdout is not a JSON status line: %q", stdout.String())
	}
	if status["status"] != "success" || status["output_file"] != opts.OutputPath {
		t.Errorf("unexpected status line %v", status)
	}
}

func TestRunBackendFailure(t *testing.T) {
	fake := &fakeProvider{err: fmt.Errorf("pipeline crashed")}
	var stdout bytes.Buffer
	a := newTestApp(t, fake, &stdout)

	opts := testOptions(t, writeTempAudio(t))
	err := a.Run(context.Background(), opts)
	if err == nil {
		t.Fatal("expected error")
	}

	// Error payload is still written to the output file.
	doc := readJSON(t, opts.OutputPath)
	if doc["success"] != false {
		t.Error("expected success false in output file")
	}
	errMsg, _ := doc["error"].(string)
	if errMsg == "" {
		t.Error("expected non-empty error in output file")
	}

	var status map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &status); err != nil {
		t.Fatalf("stdout is not a JSON status line: %q", stdout.String())
	}
	if status["status"] != "error" {
		t.Errorf("unexpected status line %v", status)
	}
}

func TestRunMalformedBackendSegments(t *testing.T) {
	fake := &fakeProvider{
		resp: &diarization.Response{
			Segments: []diarization.Segment{
				{Speaker: "SPEAKER_00", Start: -3.0, End: -5.0},
			},
			NumSpeakers: 1,
		},
	}
	var stdout bytes.Buffer
	a := newTestApp(t, fake, &stdout)

	opts := testOptions(t, writeTempAudio(t))
	err := a.Run(context.Background(), opts)
	if err == nil {
		t.Fatal("expected error for malformed segments")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeInvalidFormat {
		t.Errorf("expected INVALID_FORMAT, got %v", err)
	}

	// Never a success report with malformed times.
	doc := readJSON(t, opts.OutputPath)
	if doc["success"] != false {
		t.Error("expected success false in output file")
	}
	detail, ok := doc["error_detail"].(map[string]any)
	if !ok {
		t.Fatal("expected structured error_detail in output file")
	}
	if detail["code"] != string(errors.ErrCodeInvalidFormat) {
		t.Errorf("unexpected error_detail code %v", detail["code"])
	}
}

func TestRunMissingAudio(t *testing.T) {
	fake := &fakeProvider{resp: &diarization.Response{}}
	var stdout bytes.Buffer
	a := newTestApp(t, fake, &stdout)

	opts := testOptions(t, filepath.Join(t.TempDir(), "missing.wav"))
	err := a.Run(context.Background(), opts)
	if err == nil {
		t.Fatal("expected error for missing audio")
	}
	if fake.calls != 0 {
		t.Error("backend must not be called for missing audio")
	}

	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if errors.ExitCode(err) == 0 {
		t.Error("expected non-zero exit code")
	}
}

func TestRunUnavailableBackend(t *testing.T) {
	fake := &fakeProvider{resp: &diarization.Response{}, unavailable: true}
	var stdout bytes.Buffer
	a := newTestApp(t, fake, &stdout)

	opts := testOptions(t, writeTempAudio(t))
	err := a.Run(context.Background(), opts)
	if err == nil {
		t.Fatal("expected error for unavailable backend")
	}
	if fake.calls != 0 {
		t.Error("backend must not be called when unavailable")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeServiceUnavailable {
		t.Errorf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
}

func TestRunUnknownBackend(t *testing.T) {
	fake := &fakeProvider{resp: &diarization.Response{}}
	var stdout bytes.Buffer
	a := newTestApp(t, fake, &stdout)

	opts := testOptions(t, writeTempAudio(t))
	opts.Backend = "unknown"
	if err := a.Run(context.Background(), opts); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestRunRecordsHistory(t *testing.T) {
	fake := &fakeProvider{
		resp: &diarization.Response{
			Segments: []diarization.Segment{
				{Speaker: "SPEAKER_00", Start: 0.0, End: 3.0},
			},
			NumSpeakers: 1,
		},
	}
	var stdout bytes.Buffer

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	a := newTestApp(t, fake, &stdout).WithHistory(store)

	opts := testOptions(t, writeTempAudio(t))
	if err := a.Run(context.Background(), opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(records))
	}
	rec := records[0]
	if !rec.Success || rec.SpeakerCount != 1 || rec.SegmentCount != 1 {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.Backend != "fake" {
		t.Errorf("expected backend 'fake', got %q", rec.Backend)
	}
}

func TestRunProgressOnFailure(t *testing.T) {
	fake := &fakeProvider{err: fmt.Errorf("boom")}
	var stdout bytes.Buffer
	a := newTestApp(t, fake, &stdout)

	opts := testOptions(t, writeTempAudio(t))
	opts.ProgressFile = filepath.Join(t.TempDir(), "progress.json")

	if err := a.Run(context.Background(), opts); err == nil {
		t.Fatal("expected error")
	}

	// Progress stops at the backend-call milestone, never reaches 1.0.
	prog := readJSON(t, opts.ProgressFile)
	if prog["progress"] != float64(0.1) {
		t.Errorf("expected progress 0.1 after backend failure, got %v", prog["progress"])
	}
}
