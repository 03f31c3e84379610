// Package format defines the on-disk constants of the perf.data container:
// file magics, sampling-configuration bits, record types and header feature
// bits. The values mirror the 3.8-era kernel ABI the captures are produced
// with and must not be changed independently of it.
package format

import "strings"

// File magics. Magic encodes both file identity and byte order: a capture
// written on a host of the opposite endianness shows up as MagicSwapped.
const (
	// Magic is "PERFILE2" as a native-order uint64.
	Magic uint64 = 0x32454c4946524550
	// MagicSwapped is Magic as written by a host of the opposite byte order.
	MagicSwapped uint64 = 0x50455246494c4532
)

// LegacyMagic is the first-generation "PERFFILE" magic. Captures carrying it
// predate the attribute/data/event-type section layout and are rejected.
var LegacyMagic = [8]byte{'P', 'E', 'R', 'F', 'F', 'I', 'L', 'E'}

// SampleFormat is the sampling-configuration bitmask (perf_event_attr
// sample_type). Each set bit adds one optional field to every record the
// attribute produces.
type SampleFormat uint64

const (
	SampleIP          SampleFormat = 1 << 0
	SampleTID         SampleFormat = 1 << 1
	SampleTime        SampleFormat = 1 << 2
	SampleAddr        SampleFormat = 1 << 3
	SampleRead        SampleFormat = 1 << 4
	SampleCallchain   SampleFormat = 1 << 5
	SampleID          SampleFormat = 1 << 6
	SampleCPU         SampleFormat = 1 << 7
	SamplePeriod      SampleFormat = 1 << 8
	SampleStreamID    SampleFormat = 1 << 9
	SampleRaw         SampleFormat = 1 << 10
	SampleBranchStack SampleFormat = 1 << 11
	SampleRegsUser    SampleFormat = 1 << 12
	SampleStackUser   SampleFormat = 1 << 13

	SampleMax SampleFormat = 1 << 14 // non-ABI
)

// StaticSampleMask selects the fixed-width 8-byte fields of a sample record.
// Fields outside the mask (read groups, call chains, raw payloads, branch
// stacks, register and user-stack dumps) are variable-length and cannot be
// sized without parsing the record itself.
const StaticSampleMask = SampleIP | SampleTID | SampleTime | SampleAddr |
	SampleID | SampleCPU | SamplePeriod | SampleStreamID

var sampleFormatNames = []struct {
	bit  SampleFormat
	name string
}{
	{SampleIP, "IP"},
	{SampleTID, "TID"},
	{SampleTime, "TIME"},
	{SampleAddr, "ADDR"},
	{SampleRead, "READ"},
	{SampleCallchain, "CALLCHAIN"},
	{SampleID, "ID"},
	{SampleCPU, "CPU"},
	{SamplePeriod, "PERIOD"},
	{SampleStreamID, "STREAM_ID"},
	{SampleRaw, "RAW"},
	{SampleBranchStack, "BRANCH_STACK"},
	{SampleRegsUser, "REGS_USER"},
	{SampleStackUser, "STACK_USER"},
}

// String renders the set bits by name, e.g. "IP|TID|TIME|CPU".
func (f SampleFormat) String() string {
	if f == 0 {
		return "none"
	}

	var names []string
	for _, sf := range sampleFormatNames {
		if f&sf.bit != 0 {
			names = append(names, sf.name)
		}
	}
	if rest := f &^ (SampleMax - 1); rest != 0 {
		names = append(names, "UNKNOWN")
	}

	return strings.Join(names, "|")
}

// RecordType is the type code in a record's fixed header.
type RecordType uint32

const (
	RecordMmap       RecordType = 1
	RecordLost       RecordType = 2
	RecordComm       RecordType = 3
	RecordExit       RecordType = 4
	RecordThrottle   RecordType = 5
	RecordUnthrottle RecordType = 6
	RecordFork       RecordType = 7
	RecordRead       RecordType = 8
	RecordSample     RecordType = 9

	// RecordFinishedRound is a pseudo-record the producer emits as a flush
	// marker between rounds of the record stream. It carries no payload and
	// no timestamp and must survive trimming verbatim.
	RecordFinishedRound RecordType = 68
)

var recordTypeNames = map[RecordType]string{
	RecordMmap:          "MMAP",
	RecordLost:          "LOST",
	RecordComm:          "COMM",
	RecordExit:          "EXIT",
	RecordThrottle:      "THROTTLE",
	RecordUnthrottle:    "UNTHROTTLE",
	RecordFork:          "FORK",
	RecordRead:          "READ",
	RecordSample:        "SAMPLE",
	RecordFinishedRound: "FINISHED_ROUND",
}

func (t RecordType) String() string {
	if name, ok := recordTypeNames[t]; ok {
		return name
	}

	return "UNKNOWN"
}

// AttrType is the major event class in an attribute (hardware, software,
// tracepoint, ...). Only used for diagnostics.
type AttrType uint32

const (
	AttrHardware   AttrType = 0
	AttrSoftware   AttrType = 1
	AttrTracepoint AttrType = 2
	AttrHWCache    AttrType = 3
	AttrRaw        AttrType = 4
	AttrBreakpoint AttrType = 5
)

var attrTypeNames = map[AttrType]string{
	AttrHardware:   "HARDWARE",
	AttrSoftware:   "SOFTWARE",
	AttrTracepoint: "TRACEPOINT",
	AttrHWCache:    "HW_CACHE",
	AttrRaw:        "RAW",
	AttrBreakpoint: "BREAKPOINT",
}

func (t AttrType) String() string {
	if name, ok := attrTypeNames[t]; ok {
		return name
	}

	return "UNKNOWN"
}

// FeatureBits is the width of the header's feature bitmap in bits. The
// number of trailer sections equals the bitmap's population count.
const FeatureBits = 256
