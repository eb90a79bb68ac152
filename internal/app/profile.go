package app

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// profiler appends per-frame section timings to a CSV file. A nil profiler
// is valid and records nothing. It is only used from the render loop.
type profiler struct {
	file  *os.File
	w     *csv.Writer
	log   *log.Logger
	frame uint64
	start time.Time
	last  time.Time
}

func newProfiler(path string, logger *log.Logger) *profiler {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		logger.Printf("profiler disabled: %v", err)
		return nil
	}
	p := &profiler{
		file: f,
		w:    csv.NewWriter(f),
		log:  logger,
	}
	p.w.Write([]string{"timestamp", "frame", "section", "delta_ms"})
	return p
}

func (p *profiler) beginFrame() {
	if p == nil {
		return
	}
	now := time.Now()
	p.frame++
	p.start = now
	p.last = now
}

// markSection records the time since the previous mark under name.
func (p *profiler) markSection(name string) {
	if p == nil {
		return
	}
	now := time.Now()
	p.record(now, name, now.Sub(p.last))
	p.last = now
}

func (p *profiler) endFrame() {
	if p == nil {
		return
	}
	now := time.Now()
	p.record(now, "frame_total", now.Sub(p.start))
	p.w.Flush()
}

func (p *profiler) record(at time.Time, section string, d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)
	if err := p.w.Write([]string{
		at.Format(time.RFC3339Nano),
		strconv.FormatUint(p.frame, 10),
		section,
		strconv.FormatFloat(ms, 'f', 3, 64),
	}); err != nil {
		p.log.Printf("profiler write: %v", err)
	}
}

func (p *profiler) Close() error {
	if p == nil {
		return nil
	}
	p.w.Flush()
	if err := p.w.Error(); err != nil {
		p.file.Close()
		return fmt.Errorf("profiler flush: %w", err)
	}
	return p.file.Close()
}
