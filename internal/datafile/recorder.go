// Package datafile persists measurement batches to a CSV file and keeps
// the most recent sample available for anything that wants it.
package datafile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/troughctl/internal/trough"
)

const (
	annotationPrefix = "# "
)

// Recorder writes measurement rows and `# `-prefixed annotations to one
// file. Sample timestamps are relative to the measurement start, so a
// mutable time offset is added to the elapsed-time field of every row.
// Safe for concurrent use; Record is shaped as a poll.DataFunc.
type Recorder struct {
	mu sync.Mutex

	file   *os.File
	writer *csv.Writer

	timeOffset float64

	latest    trough.Measurement
	hasLatest bool
}

// Create opens (truncating) the data file, creating parent directories
// as needed.
func Create(path string) (*Recorder, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("datafile: create dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("datafile: create: %w", err)
	}
	return &Recorder{
		file:   f,
		writer: csv.NewWriter(f),
	}, nil
}

// Record applies the time offset to every sample in the batch and writes
// the ones carrying fresh data (pending count > 0). The last sample of
// the batch becomes the latest snapshot either way.
func (r *Recorder) Record(batch []trough.Measurement) {
	if len(batch) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range batch {
		m.AddTimeOffset(r.timeOffset)
		if m.PendingCount() > 0 {
			if err := r.writer.Write(row(m)); err != nil {
				log.Error().Err(err).Msg("datafile write failed")
			}
		}
	}
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		log.Error().Err(err).Msg("datafile flush failed")
	}

	r.latest = batch[len(batch)-1]
	r.hasLatest = true
}

// Latest returns the most recent sample seen by Record.
func (r *Recorder) Latest() (trough.Measurement, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest, r.hasLatest
}

// TimeOffset returns the value currently added to all timestamps.
func (r *Recorder) TimeOffset() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeOffset
}

// SetTimeOffset changes the value added to all timestamps and annotates
// the file with the change.
func (r *Recorder) SetTimeOffset(secs float64) {
	r.mu.Lock()
	r.timeOffset = secs
	r.mu.Unlock()
	r.Annotate("Time Offset set to %v", secs)
}

// Annotate writes a comment line into the data file.
func (r *Recorder) Annotate(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.writer.Flush()
	if _, err := fmt.Fprintf(r.file, "%s%s\n", annotationPrefix, fmt.Sprintf(format, args...)); err != nil {
		log.Error().Err(err).Msg("datafile annotate failed")
	}
}

// Flush forces buffered rows to disk.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writer.Flush()
	return r.writer.Error()
}

// Close flushes and closes the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writer.Flush()
	return r.file.Close()
}

func row(m trough.Measurement) []string {
	out := make([]string, len(m))
	for i, v := range m {
		out[i] = v.String()
	}
	return out
}
