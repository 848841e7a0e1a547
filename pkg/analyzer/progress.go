package analyzer

import (
	"context"
	"sync/atomic"
)

// ProgressFunc is called to report analysis progress.
// current is the number of items processed, total is the total count,
// and path is the current item being processed.
type ProgressFunc func(current, total int, path string)

// Tracker tracks progress for analysis operations.
// It is safe for concurrent use from multiple goroutines.
type Tracker struct {
	total    atomic.Int32
	current  atomic.Int32
	callback ProgressFunc
}

// NewTracker creates a new progress tracker with the given callback.
// The callback is invoked on each Tick with (current, total, path).
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Add increments the total count by n. Call this when you discover
// how many items will be processed.
func (t *Tracker) Add(n int) {
	t.total.Add(int32(n))
}

// SetTotal sets the total count. This replaces any previous total.
func (t *Tracker) SetTotal(n int) {
	t.total.Store(int32(n))
}

// Tick marks one item as completed. The path identifies the completed item.
// This increments the current count and invokes the callback if set.
func (t *Tracker) Tick(path string) {
	current := int(t.current.Add(1))
	total := int(t.total.Load())
	if t.callback != nil {
		t.callback(current, total, path)
	}
}

// Current returns the current progress count.
func (t *Tracker) Current() int {
	return int(t.current.Load())
}

// Total returns the total count.
func (t *Tracker) Total() int {
	return int(t.total.Load())
}

type trackerKey struct{}

// WithTracker returns a context that carries a progress tracker.
// Use TrackerFromContext to extract it in the processing layer.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext extracts the progress tracker from the context.
// Returns nil if no tracker was set.
func TrackerFromContext(ctx context.Context) *Tracker {
	if t, ok := ctx.Value(trackerKey{}).(*Tracker); ok {
		return t
	}
	return nil
}

// MessageFunc is called to report a stage of processing that doesn't map
// onto a discrete item count, such as process detection's phases.
// progress is a percentage in [0, 100].
type MessageFunc func(message string, progress int)

// MessageTracker reports coarse (message, percentage) progress, used by the
// process detector instead of the per-file Tracker above.
type MessageTracker struct {
	callback MessageFunc
}

// NewMessageTracker creates a message-based tracker. callback may be nil.
func NewMessageTracker(callback MessageFunc) *MessageTracker {
	return &MessageTracker{callback: callback}
}

// Report invokes the callback, clamping progress to [0, 100].
func (t *MessageTracker) Report(message string, progress int) {
	if t == nil || t.callback == nil {
		return
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	t.callback(message, progress)
}
