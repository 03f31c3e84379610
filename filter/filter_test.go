package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/traceutil/perftrim/errs"
	"github.com/traceutil/perftrim/format"
	"github.com/traceutil/perftrim/sample"
)

func timed(ts uint64) *sample.Sample {
	s := sample.New()
	s.Time = ts

	return &s
}

func TestNewWindow(t *testing.T) {
	t.Run("rebases bounds against start", func(t *testing.T) {
		w, err := NewWindow(1500, 2500, 1000)
		require.NoError(t, err)
		require.Equal(t, Window{Begin: 500, End: 1500}, w)
	})

	t.Run("zero start keeps bounds absolute", func(t *testing.T) {
		w, err := NewWindow(100, 200, 0)
		require.NoError(t, err)
		require.Equal(t, Window{Begin: 100, End: 200}, w)
	})

	t.Run("begin before start", func(t *testing.T) {
		_, err := NewWindow(500, 2500, 1000)
		require.ErrorIs(t, err, errs.ErrWindowBeforeStart)
	})

	t.Run("end before begin", func(t *testing.T) {
		_, err := NewWindow(2000, 1500, 1000)
		require.ErrorIs(t, err, errs.ErrWindowInverted)
	})
}

func TestFilter_Calibration(t *testing.T) {
	f := New(Window{Begin: 0, End: DefaultEnd})

	require.False(t, f.Calibrated())

	// A rename record without a timestamp does not calibrate.
	require.True(t, f.Keep(format.RecordComm, timed(0)))
	require.False(t, f.Calibrated())

	// Non-rename records never calibrate, whatever their timestamp.
	require.True(t, f.Keep(format.RecordSample, timed(500)))
	require.False(t, f.Calibrated())

	// The first rename record with a nonzero timestamp becomes time zero
	// and is itself kept.
	require.True(t, f.Keep(format.RecordComm, timed(1000)))
	require.True(t, f.Calibrated())
	require.Equal(t, uint64(1000), f.ReferenceTime())

	// Later rename records do not move the reference.
	require.True(t, f.Keep(format.RecordComm, timed(2000)))
	require.Equal(t, uint64(1000), f.ReferenceTime())
}

func TestFilter_Keep(t *testing.T) {
	const ref = 1_000_000_000

	calibrated := func(w Window) *Filter {
		f := New(w)
		require.True(t, f.Keep(format.RecordComm, timed(ref)))

		return f
	}

	t.Run("flush marker always kept", func(t *testing.T) {
		f := calibrated(Window{Begin: 10, End: 20})
		s := sample.New()
		require.True(t, f.Keep(format.RecordFinishedRound, &s))
	})

	t.Run("zero time always kept", func(t *testing.T) {
		f := calibrated(Window{Begin: 10, End: 20})
		require.True(t, f.Keep(format.RecordSample, timed(0)))
	})

	t.Run("unknown time always kept", func(t *testing.T) {
		f := calibrated(Window{Begin: 10, End: 20})
		s := sample.New()
		require.True(t, f.Keep(format.RecordSample, &s))
	})

	t.Run("uncalibrated keeps everything", func(t *testing.T) {
		f := New(Window{Begin: 10, End: 20})
		require.True(t, f.Keep(format.RecordSample, timed(ref+1_000_000_000)))
	})

	t.Run("pre-reference kept", func(t *testing.T) {
		f := calibrated(Window{Begin: 10, End: 20})
		require.True(t, f.Keep(format.RecordSample, timed(ref-5)))
		require.True(t, f.Keep(format.RecordSample, timed(ref)))
	})

	t.Run("inside window kept", func(t *testing.T) {
		f := calibrated(Window{Begin: 10, End: 20})
		require.True(t, f.Keep(format.RecordSample, timed(ref+10)))
		require.True(t, f.Keep(format.RecordSample, timed(ref+15)))
		require.True(t, f.Keep(format.RecordSample, timed(ref+20)))
	})

	t.Run("before window dropped", func(t *testing.T) {
		f := calibrated(Window{Begin: 10, End: 20})
		require.False(t, f.Keep(format.RecordSample, timed(ref+9)))
	})

	t.Run("drift extends the end inclusively", func(t *testing.T) {
		f := calibrated(Window{Begin: 10, End: 20})
		require.True(t, f.Keep(format.RecordSample, timed(ref+20+Drift)))
		require.False(t, f.Keep(format.RecordSample, timed(ref+20+Drift+1)))
	})

	t.Run("unbounded end never drops late records", func(t *testing.T) {
		f := calibrated(Window{Begin: 0, End: DefaultEnd})
		require.True(t, f.Keep(format.RecordSample, timed(ref+1)))
		require.True(t, f.Keep(format.RecordSample, timed(^uint64(0)-1)))
	})
}

func TestFilter_RelativeTime(t *testing.T) {
	f := New(Window{Begin: 0, End: DefaultEnd})

	_, known := f.RelativeTime(timed(100))
	require.False(t, known)

	require.True(t, f.Keep(format.RecordComm, timed(1000)))

	rel, known := f.RelativeTime(timed(1300))
	require.True(t, known)
	require.Equal(t, int64(300), rel)

	rel, known = f.RelativeTime(timed(700))
	require.True(t, known)
	require.Equal(t, int64(-300), rel)

	s := sample.New()
	_, known = f.RelativeTime(&s)
	require.False(t, known)
}
