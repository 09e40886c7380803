package connect

import (
	"log/slog"
	"sort"
	"sync"
)

// StorageStrategy controls how an accumulation slot holds each
// contribution (spec.md §4.4 "Accumulation slots").
type StorageStrategy uint8

const (
	// Value copies each contribution into the container. Safe for any
	// lifetime; logs if the running total copied exceeds 1 KiB.
	Value StorageStrategy = iota
	// Reference holds a pointer to the contributing resource; requires
	// Persistent sources.
	Reference
	// Span holds a slice view into the contributing resource; requires
	// Persistent sources.
	Span
)

const valueCopyWarnBytes = 1024

// entry is one contribution to an accumulation slot.
type entry struct {
	value       any
	sizeBytes   int
	sortKey     int64
	hasSortKey  bool
	insertOrder int
}

// Accumulator holds every contribution made to one accumulation slot
// across the connect pipeline's lifetime, finalizing into an ordered
// sequence at Compile time (spec.md §4.4: "stable sort by (sort_key,
// insertion_order)" when any entry carries an explicit key).
type Accumulator struct {
	mu           sync.Mutex
	strategy     StorageStrategy
	entries      []entry
	nextOrder    int
	copiedBytes  int
}

// NewAccumulator creates an empty accumulator using strategy.
func NewAccumulator(strategy StorageStrategy) *Accumulator {
	return &Accumulator{strategy: strategy}
}

// Append records one contribution. sizeBytes is only meaningful for the
// Value strategy's 1 KiB warning heuristic.
func (a *Accumulator) Append(value any, sizeBytes int, sortKey int64, hasSortKey bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry{
		value:       value,
		sizeBytes:   sizeBytes,
		sortKey:     sortKey,
		hasSortKey:  hasSortKey,
		insertOrder: a.nextOrder,
	})
	a.nextOrder++
	if a.strategy == Value {
		a.copiedBytes += sizeBytes
		if a.copiedBytes > valueCopyWarnBytes {
			slog.Default().Warn("accumulation slot Value strategy copied over 1 KiB total",
				slog.Int("total_bytes", a.copiedBytes))
		}
	}
}

// Len returns the number of contributions.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Resolved returns every contribution's value, in final order: insertion
// order if no entry carries a sort key, otherwise a stable sort by
// (sort_key, insertion_order).
func (a *Accumulator) Resolved() []any {
	a.mu.Lock()
	defer a.mu.Unlock()

	ordered := make([]entry, len(a.entries))
	copy(ordered, a.entries)

	anySortKey := false
	for _, e := range ordered {
		if e.hasSortKey {
			anySortKey = true
			break
		}
	}
	if anySortKey {
		sort.SliceStable(ordered, func(i, j int) bool {
			ki, kj := ordered[i].effectiveKey(), ordered[j].effectiveKey()
			if ki != kj {
				return ki < kj
			}
			return ordered[i].insertOrder < ordered[j].insertOrder
		})
	}

	out := make([]any, len(ordered))
	for i, e := range ordered {
		out[i] = e.value
	}
	return out
}

// effectiveKey treats an entry with no explicit sort key as sorting after
// every entry that does have one, while preserving relative insertion
// order among keyless entries via the insertion-order tiebreak.
func (e entry) effectiveKey() int64 {
	if e.hasSortKey {
		return e.sortKey
	}
	return int64(^uint64(0) >> 1)
}

// Strategy reports the accumulator's current storage strategy.
func (a *Accumulator) Strategy() StorageStrategy {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.strategy
}

// SetStrategy replaces the storage strategy. Contributions already
// appended are kept as they are.
func (a *Accumulator) SetStrategy(s StorageStrategy) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.strategy = s
}
