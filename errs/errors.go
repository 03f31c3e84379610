// Package errs defines the sentinel errors shared across perftrim packages.
//
// The errors fall into four groups mirroring how a run can fail: the file is
// not a capture this tool understands (format errors), the capture lacks the
// metadata the filter needs (capability errors), a record contradicts its
// attribute (truncation), or plain I/O failure. All of them are fatal to the
// run; there is no local recovery.
package errs

import "errors"

// Format errors: the file is unsafe to interpret further.
var (
	// ErrBadMagic indicates the file does not start with a recognized magic.
	ErrBadMagic = errors.New("not a perf capture: bad magic")

	// ErrMismatchedEndianness indicates the capture was written on a host of
	// the opposite byte order. Conversion is out of scope; regenerate the
	// capture on a matching host.
	ErrMismatchedEndianness = errors.New("capture byte order does not match host")

	// ErrLegacyFormat indicates the first-generation "PERFFILE" container.
	ErrLegacyFormat = errors.New("legacy PERFFILE container is not supported")

	// ErrLegacyHeader indicates a recognized pre-feature-bitmap header size.
	ErrLegacyHeader = errors.New("legacy header without feature bitmap is not supported")

	// ErrInvalidHeaderSize indicates a declared header size this tool does
	// not recognize at all.
	ErrInvalidHeaderSize = errors.New("invalid header size")

	// ErrInvalidAttrSize indicates the header's attribute-record size does
	// not match the expected layout; the attribute section cannot be parsed.
	ErrInvalidAttrSize = errors.New("attribute record size does not match expected layout")

	// ErrInvalidRecordHeader indicates a record header that cannot be parsed.
	ErrInvalidRecordHeader = errors.New("invalid record header")
)

// Capability errors: the capture is valid but the filter cannot make a safe
// inclusion decision over it.
var (
	// ErrNoTimeSource indicates an attribute that neither samples time nor
	// carries the per-record identity trailer.
	ErrNoTimeSource = errors.New("attribute samples no time field")

	// ErrNoSampleIDAll indicates an attribute without the identity trailer;
	// non-sample records of such captures carry no locatable timestamp.
	ErrNoSampleIDAll = errors.New("attribute does not request per-record identity trailer")

	// ErrNoAttributes indicates a capture whose attribute section is empty;
	// there is nothing to interpret records with.
	ErrNoAttributes = errors.New("capture declares no event attributes")
)

// Record errors.
var (
	// ErrTruncatedRecord indicates a sample record smaller than the static
	// size its attribute promises. Larger records are not an error.
	ErrTruncatedRecord = errors.New("sample record smaller than static sample size")
)

// Window errors.
var (
	// ErrWindowBeforeStart indicates begin/end bounds earlier than the
	// program-start timestamp they are relative to.
	ErrWindowBeforeStart = errors.New("window bound precedes program-start timestamp")

	// ErrWindowInverted indicates an end bound earlier than the begin bound.
	ErrWindowInverted = errors.New("window end precedes window begin")
)
