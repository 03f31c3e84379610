package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/traceutil/perftrim/endian"
	"github.com/traceutil/perftrim/errs"
	"github.com/traceutil/perftrim/format"
)

func attrBytes(sampleType format.SampleFormat, sampleIDAll bool, ids FileSection) []byte {
	engine := endian.Native()
	buf := make([]byte, FileAttrSize)

	engine.PutUint32(buf[0:4], uint32(format.AttrSoftware))
	engine.PutUint32(buf[4:8], AttrSize)
	engine.PutUint64(buf[8:16], 0x42)   // config
	engine.PutUint64(buf[16:24], 4000)  // sample period
	engine.PutUint64(buf[24:32], uint64(sampleType))
	engine.PutUint64(buf[32:40], 0x7) // read format

	var flags uint64
	if sampleIDAll {
		flags |= 1 << 18
	}
	engine.PutUint64(buf[40:48], flags)

	engine.PutUint64(buf[96:104], ids.Offset)
	engine.PutUint64(buf[104:112], ids.Size)

	return buf
}

func TestFileAttr_Parse(t *testing.T) {
	st := format.SampleIP | format.SampleTID | format.SampleTime
	data := attrBytes(st, true, FileSection{Offset: 600, Size: 16})

	var fa FileAttr
	require.NoError(t, fa.Parse(data))

	require.Equal(t, format.AttrSoftware, fa.Attr.Type)
	require.Equal(t, uint32(AttrSize), fa.Attr.Size)
	require.Equal(t, uint64(0x42), fa.Attr.Config)
	require.Equal(t, uint64(4000), fa.Attr.SamplePeriod)
	require.Equal(t, st, fa.Attr.SampleType)
	require.Equal(t, uint64(0x7), fa.Attr.ReadFormat)
	require.True(t, fa.Attr.SampleIDAll())
	require.True(t, fa.Attr.SamplesTime())
	require.Equal(t, FileSection{Offset: 600, Size: 16}, fa.IDs)
}

func TestFileAttr_Parse_WrongSize(t *testing.T) {
	var fa FileAttr
	require.ErrorIs(t, fa.Parse(make([]byte, FileAttrSize-1)), errs.ErrInvalidAttrSize)
}

func TestEventAttr_StaticSampleSize(t *testing.T) {
	tests := []struct {
		name       string
		sampleType format.SampleFormat
		want       uint64
	}{
		{"none", 0, 0},
		{"single static field", format.SampleTime, 8},
		{"all static fields", format.StaticSampleMask, 64},
		{
			// Variable-length fields contribute nothing to the static size.
			"static plus variable fields",
			format.SampleIP | format.SampleTime | format.SampleCallchain | format.SampleRaw,
			16,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := EventAttr{SampleType: tt.sampleType}
			require.Equal(t, tt.want, a.StaticSampleSize())
		})
	}
}

func TestAttrRegistry_Add(t *testing.T) {
	parse := func(t *testing.T, data []byte) EventAttr {
		t.Helper()
		var fa FileAttr
		require.NoError(t, fa.Parse(data))

		return fa.Attr
	}

	t.Run("valid attribute", func(t *testing.T) {
		var r AttrRegistry
		attr := parse(t, attrBytes(format.SampleTime|format.SampleTID, true, FileSection{}))
		require.NoError(t, r.Add(attr))
		require.Equal(t, 1, r.Len())

		first, err := r.First()
		require.NoError(t, err)
		require.Equal(t, uint64(16), first.StaticSampleSize)
	})

	t.Run("no time source", func(t *testing.T) {
		var r AttrRegistry
		attr := parse(t, attrBytes(format.SampleIP, false, FileSection{}))
		require.ErrorIs(t, r.Add(attr), errs.ErrNoTimeSource)
	})

	t.Run("no identity trailer", func(t *testing.T) {
		var r AttrRegistry
		attr := parse(t, attrBytes(format.SampleTime, false, FileSection{}))
		require.ErrorIs(t, r.Add(attr), errs.ErrNoSampleIDAll)
	})

	t.Run("first of several governs layout", func(t *testing.T) {
		var r AttrRegistry
		require.NoError(t, r.Add(parse(t, attrBytes(format.SampleTime|format.SampleCPU, true, FileSection{}))))
		require.NoError(t, r.Add(parse(t, attrBytes(format.StaticSampleMask, true, FileSection{}))))
		require.Equal(t, 2, r.Len())

		first, err := r.First()
		require.NoError(t, err)
		require.Equal(t, format.SampleTime|format.SampleCPU, first.Attr.SampleType)
		require.Equal(t, format.StaticSampleMask, r.At(1).Attr.SampleType)
	})

	t.Run("empty registry", func(t *testing.T) {
		var r AttrRegistry
		_, err := r.First()
		require.ErrorIs(t, err, errs.ErrNoAttributes)
	})
}
