package budget

import "testing"

func TestSimpleProfileStartsAtMidpoint(t *testing.T) {
	p := NewSimpleProfile("t", "cat", 1, 2, 8, 5)
	if p.WorkUnits() != 5 {
		t.Fatalf("WorkUnits() = %d, want midpoint 5", p.WorkUnits())
	}
}

func TestSimpleProfileSetWorkUnitsClamps(t *testing.T) {
	p := NewSimpleProfile("t", "cat", 1, 2, 8, 5)
	p.SetWorkUnits(100)
	if p.WorkUnits() != 8 {
		t.Fatalf("WorkUnits() = %d, want clamped to max 8", p.WorkUnits())
	}
	p.SetWorkUnits(-5)
	if p.WorkUnits() != 2 {
		t.Fatalf("WorkUnits() = %d, want clamped to min 2", p.WorkUnits())
	}
}

func TestSimpleProfileOnWorkUnitChangeFiresOnlyOnActualChange(t *testing.T) {
	p := NewSimpleProfile("t", "cat", 1, 2, 8, 5)
	var calls int
	p.OnWorkUnitChange(func(taskID string, old, new int) { calls++ })

	p.SetWorkUnits(5) // already 5, the midpoint: no change
	if calls != 0 {
		t.Fatalf("calls = %d, want 0 for a no-op set", calls)
	}
	p.SetWorkUnits(6)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 after an actual change", calls)
	}
}

func TestSimpleProfileCalibration(t *testing.T) {
	p := NewSimpleProfile("t", "cat", 1, 1, 8, 3)
	if p.IsCalibrated() {
		t.Fatal("IsCalibrated() = true before any measurements")
	}
	p.RecordMeasurement(1000)
	p.RecordMeasurement(1000)
	if p.IsCalibrated() {
		t.Fatal("IsCalibrated() = true before minSamples reached")
	}
	p.RecordMeasurement(1000)
	if !p.IsCalibrated() {
		t.Fatal("IsCalibrated() = false after minSamples measurements")
	}
}

func TestSimpleProfileEstimatedCostScalesWithWorkUnits(t *testing.T) {
	p := NewSimpleProfile("t", "cat", 1, 1, 8, 1)
	p.SetWorkUnits(2)
	p.RecordMeasurement(2000) // perUnit = 1000 at 2 units
	if got := p.EstimatedCostNs(); got != 2000 {
		t.Fatalf("EstimatedCostNs() = %d, want 2000", got)
	}
	p.SetWorkUnits(4)
	if got := p.EstimatedCostNs(); got != 4000 {
		t.Fatalf("EstimatedCostNs() = %d, want 4000 after doubling work units", got)
	}
}

func TestResolutionProfileStartsAtMiddleRow(t *testing.T) {
	rows := []ResolutionRow{{512, 1000}, {1024, 2000}, {2048, 4000}}
	p := NewResolutionProfile("t", "cat", 1, rows, 2)
	if p.WorkUnits() != 1024 {
		t.Fatalf("WorkUnits() = %d, want middle row 1024", p.WorkUnits())
	}
	if got := p.EstimatedCostNs(); got != 2000 {
		t.Fatalf("EstimatedCostNs() = %d, want 2000", got)
	}
}

func TestResolutionProfileSetWorkUnitsPicksNearestRow(t *testing.T) {
	rows := []ResolutionRow{{512, 1000}, {1024, 2000}, {2048, 4000}}
	p := NewResolutionProfile("t", "cat", 1, rows, 2)
	p.SetWorkUnits(1100)
	if p.WorkUnits() != 1024 {
		t.Fatalf("WorkUnits() = %d, want nearest row 1024", p.WorkUnits())
	}
	p.SetWorkUnits(3000)
	if p.WorkUnits() != 2048 {
		t.Fatalf("WorkUnits() = %d, want nearest row 2048", p.WorkUnits())
	}
}

func TestResolutionProfileRecordMeasurementUpdatesCurrentRow(t *testing.T) {
	rows := []ResolutionRow{{512, 1000}, {1024, 2000}}
	p := NewResolutionProfile("t", "cat", 1, rows, 1)
	p.SetWorkUnits(512)
	p.RecordMeasurement(1500)
	if got := p.EstimatedCostNs(); got != 1500 {
		t.Fatalf("EstimatedCostNs() = %d, want 1500 after measurement updates current row", got)
	}
	if !p.IsCalibrated() {
		t.Fatal("IsCalibrated() = false after minSamples reached")
	}
}

func TestResolutionProfileRange(t *testing.T) {
	rows := []ResolutionRow{{512, 1000}, {1024, 2000}, {2048, 4000}}
	p := NewResolutionProfile("t", "cat", 1, rows, 1)
	min, max := p.Range()
	if min != 512 || max != 2048 {
		t.Fatalf("Range() = (%d, %d), want (512, 2048)", min, max)
	}
}
