// Package calibration persists budget.Registry task-profile calibration
// state to disk, one file per GPU (spec.md §6 "Calibration file format").
package calibration

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/vixengraph/rendergraph/budget"
)

// CurrentVersion is the file format version this package writes. Load
// treats a mismatch as a reason to re-calibrate, not a hard failure
// (spec.md §6 "Versioned: a mismatch is handled by re-calibration rather
// than a hard failure").
const CurrentVersion uint32 = 1

// GPUIdentity distinguishes calibration files across GPUs, since
// per-unit costs are hardware-specific.
type GPUIdentity struct {
	Name     string `json:"name"`
	VendorID uint32 `json:"vendor_id"`
	DeviceID uint32 `json:"device_id"`
}

// ProfileRecord is one task profile's serialized calibration state.
// SimpleProfile and ResolutionProfile only populate the fields relevant
// to their kind; the rest are left zero and omitted from JSON.
type ProfileRecord struct {
	TypeName    string                 `json:"type_name"`
	TaskID      string                 `json:"task_id"`
	Category    string                 `json:"category"`
	Priority    int                    `json:"priority"`
	WorkUnits   int                    `json:"work_units"`
	SampleCount int                    `json:"sample_count"`
	PerUnitNs   int64                  `json:"per_unit_ns,omitempty"`
	Rows        []budget.ResolutionRow `json:"rows,omitempty"`
	RowIndex    int                    `json:"row_index,omitempty"`
}

// File is the on-disk calibration document: a text tree of
// {version, gpu, timestamp, profiles} (spec.md §6).
type File struct {
	Version   uint32          `json:"version"`
	GPU       GPUIdentity     `json:"gpu"`
	Timestamp time.Time       `json:"timestamp"`
	Profiles  []ProfileRecord `json:"profiles"`
}

// typeNamed is implemented by profile kinds that identify themselves for
// persistence (SimpleProfile, ResolutionProfile, and any well-behaved
// custom Profile).
type typeNamed interface {
	TypeName() string
}

// simpleCalibrated is implemented by SimpleProfile.
type simpleCalibrated interface {
	PerUnitNs() int64
	SampleCount() int
}

// resolutionCalibrated is implemented by ResolutionProfile.
type resolutionCalibrated interface {
	Rows() []budget.ResolutionRow
	CurrentIndex() int
	SampleCount() int
}

// Save writes every registered task profile's calibration state to path
// under gpu's identity.
func Save(path string, gpu GPUIdentity, reg *budget.Registry, now time.Time) error {
	file := File{Version: CurrentVersion, GPU: gpu, Timestamp: now}

	for _, taskID := range reg.TaskIDs() {
		p, ok := reg.GetProfile(taskID)
		if !ok {
			continue
		}
		record := ProfileRecord{
			TaskID:    p.TaskID(),
			Category:  string(p.Category()),
			Priority:  p.Priority(),
			WorkUnits: p.WorkUnits(),
		}
		if tn, ok := p.(typeNamed); ok {
			record.TypeName = tn.TypeName()
		}
		switch c := p.(type) {
		case simpleCalibrated:
			record.PerUnitNs = c.PerUnitNs()
			record.SampleCount = c.SampleCount()
		case resolutionCalibrated:
			record.Rows = c.Rows()
			record.RowIndex = c.CurrentIndex()
			record.SampleCount = c.SampleCount()
		}
		file.Profiles = append(file.Profiles, record)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("calibration: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("calibration: write %s: %w", path, err)
	}
	return nil
}

// Load reads path and seeds calibration state onto the profiles already
// registered in reg, matched by task id. Profiles in the file with no
// matching registered task are skipped (the node that owns them may no
// longer exist). A version mismatch is logged at Warn and Load returns
// nil without touching reg, leaving it to re-calibrate from scratch.
func Load(path string, reg *budget.Registry) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("calibration: read %s: %w", path, err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("calibration: unmarshal %s: %w", path, err)
	}

	if file.Version != CurrentVersion {
		slog.Default().Warn("calibration: version mismatch, re-calibrating",
			"path", path, "file_version", file.Version, "current_version", CurrentVersion)
		return nil
	}

	for _, record := range file.Profiles {
		p, ok := reg.GetProfile(record.TaskID)
		if !ok {
			slog.Default().Debug("calibration: no registered task for record, skipping",
				"task_id", record.TaskID)
			continue
		}
		p.SetWorkUnits(record.WorkUnits)

		switch restorer := p.(type) {
		case *budget.SimpleProfile:
			restorer.SeedCalibration(record.PerUnitNs, record.SampleCount)
		case *budget.ResolutionProfile:
			restorer.SeedCalibrationRows(record.Rows, record.RowIndex, record.SampleCount)
		}
	}
	return nil
}
