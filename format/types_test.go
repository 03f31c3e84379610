package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSampleFormat_String(t *testing.T) {
	require.Equal(t, "none", SampleFormat(0).String())
	require.Equal(t, "IP", SampleIP.String())
	require.Equal(t, "IP|TID|TIME", (SampleIP | SampleTID | SampleTime).String())
	require.Equal(t, "CALLCHAIN|RAW", (SampleCallchain | SampleRaw).String())
	require.Contains(t, SampleFormat(1<<40).String(), "UNKNOWN")
}

func TestStaticSampleMask(t *testing.T) {
	// The static mask covers exactly the fixed-width 8-byte fields.
	require.Equal(t,
		SampleIP|SampleTID|SampleTime|SampleAddr|SampleID|SampleCPU|SamplePeriod|SampleStreamID,
		StaticSampleMask)

	// Variable-length fields stay outside.
	require.Zero(t, StaticSampleMask&SampleCallchain)
	require.Zero(t, StaticSampleMask&SampleRaw)
	require.Zero(t, StaticSampleMask&SampleBranchStack)
	require.Zero(t, StaticSampleMask&SampleRegsUser)
	require.Zero(t, StaticSampleMask&SampleStackUser)
	require.Zero(t, StaticSampleMask&SampleRead)
}

func TestRecordType_String(t *testing.T) {
	require.Equal(t, "COMM", RecordComm.String())
	require.Equal(t, "SAMPLE", RecordSample.String())
	require.Equal(t, "FINISHED_ROUND", RecordFinishedRound.String())
	require.Equal(t, "UNKNOWN", RecordType(200).String())
}

func TestAttrType_String(t *testing.T) {
	require.Equal(t, "HARDWARE", AttrHardware.String())
	require.Equal(t, "TRACEPOINT", AttrTracepoint.String())
	require.Equal(t, "UNKNOWN", AttrType(99).String())
}

func TestMagics(t *testing.T) {
	// "PERFILE2" in little-endian byte order.
	require.Equal(t, uint64(0x32454c4946524550), Magic)
	require.NotEqual(t, Magic, MagicSwapped)
	require.Equal(t, "PERFFILE", string(LegacyMagic[:]))
}
