// Package query builds and persists per-period snapshots of host-side
// renderer state: transport state, CPU load, master peak level, and
// per-source peak level. Snapshots are built only when the per-source
// level vector handed in matches the live source count, so a resize
// mid-period is ignored for one cycle rather than read out of bounds
// or reported stale-but-misleading.
//
// Collector.Build is pure and testable; Writer is the host-side piece
// that rotates output filenames with github.com/lestrrat-go/strftime,
// the same library the teacher uses for rotating transmit-log and
// beacon filenames (src/tq.go, src/xmit.go).
package query

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/doismellburning/ssrender/internal/xerr"
	"github.com/lestrrat-go/strftime"
)

// SourceID mirrors the engine's renderer.SourceID without importing it,
// so this package stays usable without a renderer dependency; callers
// pass the same integer values they use elsewhere.
type SourceID uint64

// Snapshot is one period's query result.
type Snapshot struct {
	Transport    string             `json:"transport"`
	CPULoad      float64            `json:"cpu_load"`
	MasterLevel  float64            `json:"master_level"`
	SourceLevels map[SourceID]float64 `json:"source_levels"`
}

// Collector builds Snapshots from the live engine state, per-period.
type Collector struct {
	Transport func() string
	CPULoad   func() float64
	Master    func() float64
}

// Build constructs a Snapshot from ids/levels, a parallel pair of
// slices giving each live source's id and current peak level. If
// len(ids) != len(levels) the caller handed over a vector mid-resize;
// Build returns (nil, false) rather than reading past either slice.
func (c *Collector) Build(ids []SourceID, levels []float64) (*Snapshot, bool) {
	if len(ids) != len(levels) {
		return nil, false
	}

	sourceLevels := make(map[SourceID]float64, len(ids))
	for i, id := range ids {
		sourceLevels[id] = levels[i]
	}

	transport := ""
	if c.Transport != nil {
		transport = c.Transport()
	}
	var cpuLoad, master float64
	if c.CPULoad != nil {
		cpuLoad = c.CPULoad()
	}
	if c.Master != nil {
		master = c.Master()
	}

	return &Snapshot{
		Transport:    transport,
		CPULoad:      cpuLoad,
		MasterLevel:  master,
		SourceLevels: sourceLevels,
	}, true
}

// Writer appends JSON-lines Snapshots to a rotating file, the name of
// which is computed from pattern via strftime (e.g.
// "query-%Y%m%d.jsonl" rotates once a day). The file is reopened
// whenever the computed name changes.
type Writer struct {
	pattern     *strftime.Strftime
	currentName string
	file        *os.File
}

// NewWriter compiles pattern once; pattern uses strftime directives.
func NewWriter(pattern string) (*Writer, error) {
	compiled, err := strftime.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: compile query filename pattern: %w", xerr.ErrConfiguration, err)
	}
	return &Writer{pattern: compiled}, nil
}

// Write appends one Snapshot as a JSON line, rotating to a new file if
// the pattern now resolves to a different name than the currently open
// one.
func (w *Writer) Write(snap *Snapshot) error {
	name := w.pattern.FormatString(time.Now())
	if name != w.currentName {
		if w.file != nil {
			_ = w.file.Close()
		}
		f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("%w: open query snapshot file %q: %w", xerr.ErrFatal, name, err)
		}
		w.file = f
		w.currentName = name
	}

	line, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%w: marshal query snapshot: %w", xerr.ErrFatal, err)
	}
	line = append(line, '\n')
	if _, err := w.file.Write(line); err != nil {
		return fmt.Errorf("%w: write query snapshot: %w", xerr.ErrFatal, err)
	}
	return nil
}

// Close closes the currently open file, if any.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}
