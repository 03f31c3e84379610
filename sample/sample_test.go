package sample

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/traceutil/perftrim/endian"
	"github.com/traceutil/perftrim/errs"
	"github.com/traceutil/perftrim/format"
	"github.com/traceutil/perftrim/section"
)

func makeRecord(t *testing.T, recType format.RecordType, words ...uint64) *section.RawRecord {
	t.Helper()

	engine := endian.Native()
	size := section.RecordHeaderSize + 8*len(words)

	header := section.RecordHeader{Type: recType, Size: uint16(size)}
	data := header.Bytes()
	for _, w := range words {
		data = engine.AppendUint64(data, w)
	}

	return &section.RawRecord{Header: header, Data: data}
}

func descriptor(sampleType format.SampleFormat) section.AttrDescriptor {
	attr := section.EventAttr{SampleType: sampleType}

	return section.AttrDescriptor{Attr: attr, StaticSampleSize: attr.StaticSampleSize()}
}

func pidTID(pid, tid uint32) uint64 {
	return uint64(pid) | uint64(tid)<<32
}

func TestNew_Sentinels(t *testing.T) {
	s := New()

	require.Equal(t, UnknownPID, s.PID)
	require.Equal(t, UnknownTID, s.TID)
	require.Equal(t, UnknownCPU, s.CPU)
	require.Equal(t, UnknownTime, s.Time)
	require.Equal(t, UnknownID, s.ID)
	require.Equal(t, UnknownStreamID, s.StreamID)
	require.Zero(t, s.IP)
	require.Zero(t, s.Addr)
	require.False(t, s.HasTime())
}

func TestDecode_Sample_AllStaticFields(t *testing.T) {
	desc := descriptor(format.StaticSampleMask)

	rec := makeRecord(t, format.RecordSample,
		0xfeedface,          // ip
		pidTID(1234, 5678),  // pid/tid
		987654321,           // time
		0xabcdef,            // addr
		77,                  // id
		88,                  // stream id
		uint64(3),           // cpu
		4000,                // period
	)

	s, err := Decode(rec, desc)
	require.NoError(t, err)

	require.Equal(t, uint64(0xfeedface), s.IP)
	require.Equal(t, int32(1234), s.PID)
	require.Equal(t, int32(5678), s.TID)
	require.Equal(t, uint64(987654321), s.Time)
	require.Equal(t, uint64(0xabcdef), s.Addr)
	require.Equal(t, uint64(77), s.ID)
	require.Equal(t, uint64(88), s.StreamID)
	require.Equal(t, int32(3), s.CPU)
	require.Equal(t, uint64(4000), s.Period)
	require.True(t, s.HasTime())
}

func TestDecode_Sample_SubsetKeepsSentinels(t *testing.T) {
	desc := descriptor(format.SampleTID | format.SampleTime)

	rec := makeRecord(t, format.RecordSample,
		pidTID(10, 20),
		555,
	)

	s, err := Decode(rec, desc)
	require.NoError(t, err)

	require.Equal(t, int32(10), s.PID)
	require.Equal(t, int32(20), s.TID)
	require.Equal(t, uint64(555), s.Time)
	require.Equal(t, UnknownID, s.ID)
	require.Equal(t, UnknownStreamID, s.StreamID)
	require.Equal(t, UnknownCPU, s.CPU)
	require.Zero(t, s.Addr)
}

func TestDecode_Sample_OversizeTolerated(t *testing.T) {
	desc := descriptor(format.SampleIP | format.SampleTime)

	// Two static words plus an untracked variable-length tail.
	rec := makeRecord(t, format.RecordSample,
		0x1000, 777,
		0xdead, 0xbeef, 0xcafe,
	)

	s, err := Decode(rec, desc)
	require.NoError(t, err)
	require.Equal(t, uint64(0x1000), s.IP)
	require.Equal(t, uint64(777), s.Time)
}

func TestDecode_Sample_TruncatedFatal(t *testing.T) {
	desc := descriptor(format.SampleIP | format.SampleTID | format.SampleTime)

	// One word short of the declared static size.
	rec := makeRecord(t, format.RecordSample, 0x1000, pidTID(1, 2))

	_, err := Decode(rec, desc)
	require.ErrorIs(t, err, errs.ErrTruncatedRecord)
}

func TestDecode_IDTrailer_AllFields(t *testing.T) {
	desc := descriptor(format.SampleTID | format.SampleTime | format.SampleID |
		format.SampleStreamID | format.SampleCPU)

	// A non-sample record: opaque body words, then the trailer in on-disk
	// order TID, TIME, ID, STREAM_ID, CPU.
	rec := makeRecord(t, format.RecordComm,
		0x1111, 0x2222, // body
		pidTID(40, 41),
		123456,
		9,
		10,
		uint64(2),
	)

	s, err := Decode(rec, desc)
	require.NoError(t, err)

	require.Equal(t, int32(40), s.PID)
	require.Equal(t, int32(41), s.TID)
	require.Equal(t, uint64(123456), s.Time)
	require.Equal(t, uint64(9), s.ID)
	require.Equal(t, uint64(10), s.StreamID)
	require.Equal(t, int32(2), s.CPU)
}

func TestDecode_IDTrailer_AbsentFieldsSkipWithoutMovingCursor(t *testing.T) {
	// No ID and no STREAM_ID: the backward walk must consume exactly three
	// words (cpu, time, pid/tid) from the tail.
	desc := descriptor(format.SampleTID | format.SampleTime | format.SampleCPU)

	rec := makeRecord(t, format.RecordExit,
		0x9999, // body
		pidTID(7, 8),
		42,
		uint64(1),
	)

	s, err := Decode(rec, desc)
	require.NoError(t, err)

	require.Equal(t, int32(7), s.PID)
	require.Equal(t, int32(8), s.TID)
	require.Equal(t, uint64(42), s.Time)
	require.Equal(t, UnknownID, s.ID)
	require.Equal(t, UnknownStreamID, s.StreamID)
	require.Equal(t, int32(1), s.CPU)
}

func TestDecode_IDTrailer_NoTimeBit(t *testing.T) {
	desc := descriptor(format.SampleTID | format.SampleCPU)

	rec := makeRecord(t, format.RecordMmap,
		pidTID(5, 6),
		uint64(0),
	)

	s, err := Decode(rec, desc)
	require.NoError(t, err)
	require.Equal(t, UnknownTime, s.Time)
	require.False(t, s.HasTime())
}

func TestDecode_IDTrailer_TooSmall(t *testing.T) {
	// Trailer promises five fields but the record holds one word.
	desc := descriptor(format.SampleTID | format.SampleTime | format.SampleID |
		format.SampleStreamID | format.SampleCPU)

	rec := makeRecord(t, format.RecordComm, uint64(1))

	_, err := Decode(rec, desc)
	require.ErrorIs(t, err, errs.ErrTruncatedRecord)
}

func TestHasTime_ZeroIsUnknown(t *testing.T) {
	s := New()
	s.Time = 0
	require.False(t, s.HasTime())

	s.Time = 1
	require.True(t, s.HasTime())
}
