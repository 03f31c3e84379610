// Package filter decides which capture records fall inside a caller-supplied
// time window.
//
// The capture's internal clock and the caller's clock are different clock
// sources. The filter bridges them by calibration: the first process-rename
// record carrying a nonzero timestamp marks "time zero" on the capture's
// clock, and the caller's window bounds, already made relative to the
// caller's own program-start timestamp, are measured from there. A fixed
// one-millisecond drift tolerance absorbs the residual skew between the two
// clock sources.
//
// The filter is conservative: records it cannot place on the clock (no
// timestamp, zero timestamp, or seen before calibration) are always kept.
// Only records confidently outside the window are dropped.
package filter

import (
	"github.com/traceutil/perftrim/errs"
	"github.com/traceutil/perftrim/format"
	"github.com/traceutil/perftrim/sample"
)

// Drift is the tolerance, in capture clock units (nanoseconds), added past
// the window end to absorb skew between the caller's clock and the capture's
// clock. One millisecond, from experimental results with the original tool.
const Drift uint64 = 1_000_000

// DefaultEnd is the window end used when the caller supplies none: far
// enough out that every timestamp qualifies, with headroom for Drift.
const DefaultEnd = ^uint64(0) - Drift

// Window bounds a run's time range, expressed relative to the calibration
// reference. Both bounds are inclusive; End additionally extends by Drift.
type Window struct {
	Begin uint64
	End   uint64
}

// NewWindow builds a window from absolute begin/end timestamps on the
// caller's clock and the caller's program-start timestamp, rebasing the
// bounds so they can be compared against capture-relative times. Bounds
// earlier than the start timestamp cannot be rebased and are rejected.
func NewWindow(begin, end, start uint64) (Window, error) {
	if begin < start || end < start {
		return Window{}, errs.ErrWindowBeforeStart
	}
	if end < begin {
		return Window{}, errs.ErrWindowInverted
	}

	return Window{Begin: begin - start, End: end - start}, nil
}

// Filter holds the calibration state for one run. It is not safe for
// concurrent use; the trimmer drives it from a single sequential loop.
type Filter struct {
	window Window

	// referenceTime is the capture timestamp adopted as time zero. Zero
	// means uncalibrated; once set it never changes for the rest of the run.
	referenceTime uint64
}

// New returns an uncalibrated filter over the given window.
func New(window Window) *Filter {
	return &Filter{window: window}
}

// Calibrated reports whether a reference time has been adopted.
func (f *Filter) Calibrated() bool {
	return f.referenceTime != 0
}

// ReferenceTime returns the adopted reference, or zero while uncalibrated.
func (f *Filter) ReferenceTime() uint64 {
	return f.referenceTime
}

// RelativeTime translates an absolute capture timestamp into a
// window-relative offset. Only meaningful once calibrated; the boolean is
// false while uncalibrated or when the sample carries no usable time.
func (f *Filter) RelativeTime(s *sample.Sample) (int64, bool) {
	if f.referenceTime == 0 || !s.HasTime() {
		return 0, false
	}

	return int64(s.Time - f.referenceTime), true
}

// Keep decides whether a decoded record stays in the output, and feeds the
// calibration state machine as a side effect.
//
// The decision for the record that triggers calibration itself uses the
// state from before the transition: its relative time is not yet defined, so
// it is kept.
func (f *Filter) Keep(recType format.RecordType, s *sample.Sample) bool {
	// Structural flush markers are never timestamped and always survive;
	// downstream consumers of the trimmed capture expect to find them.
	if recType == format.RecordFinishedRound {
		return true
	}

	rel, relKnown := f.RelativeTime(s)

	// The producer emits a pair of process-rename records during startup;
	// only the second carries a real timestamp. The first such timestamp
	// becomes the reference for the rest of the run.
	if f.referenceTime == 0 && recType == format.RecordComm && s.HasTime() {
		f.referenceTime = s.Time
	}

	if !s.HasTime() {
		// No usable timestamp: not enough information to exclude safely.
		return true
	}
	if !relKnown || rel <= 0 {
		// Uncalibrated, or earlier than the reference.
		return true
	}

	bound := f.window.End + Drift
	if bound < f.window.End {
		bound = ^uint64(0)
	}

	return uint64(rel) >= f.window.Begin && uint64(rel) <= bound
}
