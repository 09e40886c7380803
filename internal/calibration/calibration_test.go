package calibration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vixengraph/rendergraph/budget"
)

func TestSaveAndLoadRoundTripsSimpleProfile(t *testing.T) {
	reg := budget.NewRegistry()
	p := budget.NewSimpleProfile("shadow.blur", "shadow", 10, 1, 8, 3)
	p.SetWorkUnits(5)
	p.RecordMeasurement(2000)
	p.RecordMeasurement(2200)
	p.RecordMeasurement(1800)
	reg.RegisterTask(p)

	path := filepath.Join(t.TempDir(), "calibration.json")
	gpu := GPUIdentity{Name: "Test GPU", VendorID: 1, DeviceID: 2}
	if err := Save(path, gpu, reg, time.Unix(0, 0)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reg2 := budget.NewRegistry()
	fresh := budget.NewSimpleProfile("shadow.blur", "shadow", 10, 1, 8, 3)
	reg2.RegisterTask(fresh)

	if err := Load(path, reg2); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if fresh.WorkUnits() != 5 {
		t.Fatalf("WorkUnits() = %d, want 5", fresh.WorkUnits())
	}
	if !fresh.IsCalibrated() {
		t.Fatal("IsCalibrated() = false after restoring 3 samples with minSamples=3")
	}
	if fresh.PerUnitNs() != p.PerUnitNs() {
		t.Fatalf("PerUnitNs() = %d, want %d", fresh.PerUnitNs(), p.PerUnitNs())
	}
}

func TestSaveAndLoadRoundTripsResolutionProfile(t *testing.T) {
	rows := []budget.ResolutionRow{{WorkUnits: 512, CostNs: 1000}, {WorkUnits: 1024, CostNs: 2000}}
	reg := budget.NewRegistry()
	p := budget.NewResolutionProfile("shadow.map", "shadow", 5, rows, 1)
	p.SetWorkUnits(1024)
	p.RecordMeasurement(2500)
	reg.RegisterTask(p)

	path := filepath.Join(t.TempDir(), "calibration.json")
	if err := Save(path, GPUIdentity{Name: "Test GPU"}, reg, time.Unix(0, 0)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reg2 := budget.NewRegistry()
	fresh := budget.NewResolutionProfile("shadow.map", "shadow", 5, rows, 1)
	reg2.RegisterTask(fresh)
	if err := Load(path, reg2); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if fresh.WorkUnits() != 1024 {
		t.Fatalf("WorkUnits() = %d, want 1024", fresh.WorkUnits())
	}
	if got := fresh.EstimatedCostNs(); got != 2500 {
		t.Fatalf("EstimatedCostNs() = %d, want 2500", got)
	}
}

func TestLoadVersionMismatchDoesNotError(t *testing.T) {
	reg := budget.NewRegistry()
	p := budget.NewSimpleProfile("a", "cat", 1, 1, 8, 3)
	reg.RegisterTask(p)

	path := filepath.Join(t.TempDir(), "calibration.json")
	if err := Save(path, GPUIdentity{Name: "GPU"}, reg, time.Unix(0, 0)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Simulate a newer/older file version by writing a mismatched one.
	reg2 := budget.NewRegistry()
	reg2.RegisterTask(budget.NewSimpleProfile("a", "cat", 1, 1, 8, 3))

	badPath := filepath.Join(t.TempDir(), "calibration_v0.json")
	data := []byte(`{"version":0,"gpu":{"name":"GPU"},"profiles":[]}`)
	if err := os.WriteFile(badPath, data, 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	if err := Load(badPath, reg2); err != nil {
		t.Fatalf("Load with version mismatch should not error, got: %v", err)
	}
}

func TestLoadSkipsUnknownTaskID(t *testing.T) {
	reg := budget.NewRegistry()
	p := budget.NewSimpleProfile("ghost", "cat", 1, 1, 8, 1)
	p.RecordMeasurement(100)
	reg.RegisterTask(p)

	path := filepath.Join(t.TempDir(), "calibration.json")
	if err := Save(path, GPUIdentity{Name: "GPU"}, reg, time.Unix(0, 0)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reg2 := budget.NewRegistry() // no tasks registered at all
	if err := Load(path, reg2); err != nil {
		t.Fatalf("Load: %v", err)
	}
}
