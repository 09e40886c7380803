package cleanup

import "sync"

// deferredItem is one GPU object queued for destruction once the
// renderer is sure no in-flight frame still references it.
type deferredItem struct {
	name           string
	destroy        func() error
	submittedFrame uint64
}

// DeferredQueue delays destruction of resources by a configurable number
// of frames, so a frame still in flight on the GPU queue doesn't have
// its handles yanked out from under it (spec.md §4.9 "frame-delayed GPU
// object destruction").
type DeferredQueue struct {
	mu    sync.Mutex
	frame uint64
	items []deferredItem
}

// NewDeferredQueue creates an empty deferred-destruction queue.
func NewDeferredQueue() *DeferredQueue {
	return &DeferredQueue{}
}

// Submit queues destroy to run once Advance is called with a frame at
// least lagFrames past the queue's current frame at submission time.
func (q *DeferredQueue) Submit(name string, destroy func() error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, deferredItem{name: name, destroy: destroy, submittedFrame: q.frame})
}

// Advance moves the queue's current frame forward and destroys every
// item submitted at least lagFrames ago. Destruction errors are
// collected and returned but never stop the remaining items from
// running, matching the cleanup stack's error policy.
func (q *DeferredQueue) Advance(currentFrame uint64, lagFrames uint64) []error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.frame = currentFrame

	var remaining []deferredItem
	var errs []error
	for _, item := range q.items {
		if currentFrame >= item.submittedFrame+lagFrames {
			if err := item.destroy(); err != nil {
				errs = append(errs, err)
			}
		} else {
			remaining = append(remaining, item)
		}
	}
	q.items = remaining
	return errs
}

// Pending returns the number of items still awaiting destruction.
func (q *DeferredQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
