package budget

import "sync/atomic"

// State classifies a measured frame against the configured budget, with a
// deadband around 1.0 utilization to avoid oscillation (spec.md §4.8
// "Capacity tracker").
type State uint8

const (
	// Within means utilization sits inside the deadband; no action needed.
	Within State = iota
	// Overrun means utilization exceeds 1.0 + deadband: work should be
	// reduced via Registry.DecreaseLowestPriority.
	Overrun
	// Available means utilization sits below 1.0 - deadband: spare budget
	// exists, headroom can be spent via Registry.IncreaseHighestPriority.
	Available
)

func (s State) String() string {
	switch s {
	case Within:
		return "within"
	case Overrun:
		return "overrun"
	case Available:
		return "available"
	default:
		return "unknown"
	}
}

// Result is what RecordFrame returns: the classification plus the
// smoothed average and the utilization ratio that produced it. The
// facade is responsible for turning Overrun/Available into actual
// BudgetOverrun/BudgetAvailable bus events — CapacityTracker stays
// pull-based so this package never imports the event bus (avoiding an
// import cycle: event would otherwise need budget for its payload types,
// and budget would need event to publish).
type Result struct {
	State       State
	AverageNs   int64
	Utilization float64
}

// CapacityTracker maintains an exponential moving average of frame
// duration and classifies it against a fixed budget with a deadband,
// mirroring the teacher's integer-EMA style (SimpleProfile.RecordMeasurement)
// rather than a floating accumulator.
type CapacityTracker struct {
	budgetNs int64
	deadband float64 // fraction, e.g. 0.05 for +/-5%

	averageNs atomic.Int64
	primed    atomic.Bool
}

const capacityEMAWeight = 8

// NewCapacityTracker creates a tracker against budgetNs (e.g. 16_666_667
// for a 60Hz frame budget), with deadband as a fraction of 1.0 (0.05 means
// +/-5%).
func NewCapacityTracker(budgetNs int64, deadband float64) *CapacityTracker {
	return &CapacityTracker{budgetNs: budgetNs, deadband: deadband}
}

// BudgetNs returns the configured frame budget.
func (c *CapacityTracker) BudgetNs() int64 { return c.budgetNs }

// RecordFrame folds durationNs into the moving average and classifies the
// result against the configured budget.
func (c *CapacityTracker) RecordFrame(durationNs int64) Result {
	var avg int64
	if !c.primed.Load() {
		avg = durationNs
		c.averageNs.Store(avg)
		c.primed.Store(true)
	} else {
		prev := c.averageNs.Load()
		avg = prev + (durationNs-prev)/capacityEMAWeight
		c.averageNs.Store(avg)
	}

	util := float64(avg) / float64(c.budgetNs)
	state := Within
	switch {
	case util > 1.0+c.deadband:
		state = Overrun
	case util < 1.0-c.deadband:
		state = Available
	}
	return Result{State: state, AverageNs: avg, Utilization: util}
}

// Reset clears the moving average, used when the budget itself changes
// (e.g. a window resize changes the target resolution's cost envelope).
func (c *CapacityTracker) Reset() {
	c.averageNs.Store(0)
	c.primed.Store(false)
}
