package fence

import (
	"errors"
	"fmt"
	"time"

	"github.com/glium/glium/resource"
)

// ErrContextLost is reported once the device loses its context. All
// pending fences are force-satisfied carrying this error, and every
// later wait fails fast with it instead of hanging.
var ErrContextLost = errors.New("glium: device context lost")

// ErrUnknownFence is returned by Wait for an ID this tracker never
// issued. Issued fences stay waitable after retirement even though
// their bookkeeping is discarded.
var ErrUnknownFence = errors.New("glium: unknown fence")

// TimeoutError reports a fence wait that exceeded its caller-specified
// budget. The wait may be retried; the fence itself is unaffected.
type TimeoutError struct {
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("glium: fence wait exceeded budget of %v", e.Budget)
}

// ID names one fence: a point in the GPU command stream.
type ID uint64

// Mode distinguishes GPU reads from GPU writes of a tracked range.
// Concurrent reads never conflict; a write conflicts with everything.
type Mode uint8

const (
	ModeRead Mode = iota
	ModeWrite
)

// State is the lifecycle of a fence. Transitions are monotonic:
// Pending never follows Satisfied.
type State uint8

const (
	// StateUnused is reported for IDs this tracker never issued.
	StateUnused State = iota

	// StatePending means the command stream point has not retired.
	StatePending

	// StateSatisfied means the device reported retirement (or the
	// context was lost and the fence carries an error).
	StateSatisfied
)

// Range is a half-open byte range [Start, End) within a resource.
type Range struct {
	Start int
	End   int
}

// WholeResource covers any range of a resource regardless of size.
var WholeResource = Range{Start: 0, End: int(^uint(0) >> 1)}

// Overlaps reports whether r and o share at least one byte.
func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

// Touch associates one fence with one (resource, range, mode) triple.
type Touch struct {
	Resource resource.Handle
	Range    Range
	Mode     Mode
}
