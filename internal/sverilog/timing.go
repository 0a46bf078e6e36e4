package sverilog

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// timingEvent is one line of the --timing JSONL trace (spec.md's
// AMBIENT STACK, profiling large bundles).
type timingEvent struct {
	Phase      string  `json:"phase"`
	Kind       string  `json:"kind"`
	File       string  `json:"file,omitempty"`
	StartMS    float64 `json:"start_ms"`
	DurationMS float64 `json:"duration_ms"`
	EndMS      float64 `json:"end_ms"`
}

// TimingRecorder streams per-phase durations (and per-file ones, for
// callers of RecordFile) to a JSONL file as the pipeline runs, so a slow
// bundle can be profiled without re-running under an external tool. A nil *TimingRecorder is always safe
// to call methods on; every method is then a no-op.
type TimingRecorder struct {
	start time.Time
	mu    sync.Mutex
	file  *os.File
	enc   *json.Encoder
}

// NewTimingRecorder creates a JSONL trace file at path, or returns nil if
// path is empty (timing disabled). A create failure is returned so the
// caller can decide whether it's fatal.
func NewTimingRecorder(path string, start time.Time) (*TimingRecorder, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &TimingRecorder{start: start, file: f, enc: json.NewEncoder(f)}, nil
}

// Close releases the underlying file. Safe on a nil receiver.
func (tr *TimingRecorder) Close() {
	if tr == nil || tr.file == nil {
		return
	}
	_ = tr.file.Close()
}

// RecordStage logs one pipeline phase's wall-clock duration.
func (tr *TimingRecorder) RecordStage(phase string, start time.Time, duration time.Duration) {
	tr.record(phase, "stage", "", start, duration)
}

// RecordFile logs one file's duration within a phase. Run records stage
// events only; nothing in the pipeline calls RecordFile.
func (tr *TimingRecorder) RecordFile(phase, file string, start time.Time, duration time.Duration) {
	tr.record(phase, "file", file, start, duration)
}

func (tr *TimingRecorder) record(phase, kind, file string, start time.Time, duration time.Duration) {
	if tr == nil {
		return
	}
	startMS := durationToMS(start.Sub(tr.start))
	durationMS := durationToMS(duration)
	event := timingEvent{
		Phase:      phase,
		Kind:       kind,
		File:       file,
		StartMS:    startMS,
		DurationMS: durationMS,
		EndMS:      startMS + durationMS,
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	_ = tr.enc.Encode(event)
}

func durationToMS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000_000.0
}
