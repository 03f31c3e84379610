// Package sample decodes the identity fields of capture records.
//
// A record's byte layout is not fixed: it is computed per record from the
// owning attribute's sampling-configuration bitmask, and the direction of
// the walk differs by record kind. Full sample records carry their fields
// forward from just after the record header; every other record kind carries
// an identity trailer appended at the end of the payload and parsed
// backward. The two paths are deliberately kept separate: they share field
// names but not field order, and unifying them risks silently mis-ordering
// fields.
package sample

import (
	"fmt"

	"github.com/traceutil/perftrim/endian"
	"github.com/traceutil/perftrim/errs"
	"github.com/traceutil/perftrim/format"
	"github.com/traceutil/perftrim/section"
)

// Sentinel values marking a field the record did not carry. All are
// distinct from any value the producer writes for a real field, except that
// a time of zero also occurs in early startup records and is treated as
// unknown by the filter.
const (
	UnknownCPU      int32  = -1
	UnknownPID      int32  = -1
	UnknownTID      int32  = -1
	UnknownTime     uint64 = ^uint64(0)
	UnknownID       uint64 = ^uint64(0)
	UnknownStreamID uint64 = ^uint64(0)
)

// Sample is the normalized view of a record's identity fields. Only fields
// whose bit is set in the attribute's sampling configuration are
// overwritten; the rest keep their sentinels.
type Sample struct {
	IP       uint64
	PID      int32
	TID      int32
	Time     uint64
	Addr     uint64
	ID       uint64
	StreamID uint64
	CPU      int32
	Period   uint64
}

// New returns a Sample with every field set to its sentinel.
func New() Sample {
	return Sample{
		PID:      UnknownPID,
		TID:      UnknownTID,
		Time:     UnknownTime,
		ID:       UnknownID,
		StreamID: UnknownStreamID,
		CPU:      UnknownCPU,
	}
}

// HasTime reports whether the record carried a usable timestamp. Zero is
// excluded: the producer emits zero-time records during startup and they
// cannot be placed on the capture's clock.
func (s *Sample) HasTime() bool {
	return s.Time != UnknownTime && s.Time != 0
}

// wordCursor walks a record payload in 8-byte words.
type wordCursor struct {
	words []byte
	idx   int
}

func newWordCursor(payload []byte) wordCursor {
	return wordCursor{words: payload, idx: 0}
}

func (c *wordCursor) at(i int) (uint64, bool) {
	off := i * 8
	if i < 0 || off+8 > len(c.words) {
		return 0, false
	}

	return endian.Native().Uint64(c.words[off : off+8]), true
}

// next consumes the word at the cursor moving forward.
func (c *wordCursor) next() (uint64, bool) {
	v, ok := c.at(c.idx)
	if ok {
		c.idx++
	}

	return v, ok
}

// prev consumes the word at the cursor moving backward.
func (c *wordCursor) prev() (uint64, bool) {
	v, ok := c.at(c.idx)
	if ok {
		c.idx--
	}

	return v, ok
}

func splitU32(v uint64) (lo, hi uint32) {
	return uint32(v), uint32(v >> 32)
}

// Decode populates a Sample from a raw record using the layout the
// descriptor declares. RecordFinishedRound carries no fields and must not be
// passed here; the caller keeps it verbatim without decoding.
func Decode(rec *section.RawRecord, desc section.AttrDescriptor) (Sample, error) {
	if rec.Header.Type == format.RecordSample {
		return decodeSample(rec, desc)
	}

	return decodeIDTrailer(rec, desc.Attr.SampleType)
}

// decodeIDTrailer parses the identity trailer appended to non-sample
// records. Fields sit at the end of the payload in fixed reverse order; the
// cursor starts at the last word and walks backward, consuming one word per
// present field.
func decodeIDTrailer(rec *section.RawRecord, sampleType format.SampleFormat) (Sample, error) {
	s := New()

	payload := rec.Payload()
	cursor := newWordCursor(payload)
	cursor.idx = len(payload)/8 - 1

	if sampleType&format.SampleCPU != 0 {
		v, ok := cursor.prev()
		if !ok {
			return s, trailerOverrun(rec, "cpu")
		}
		lo, _ := splitU32(v) // high half unused in the trailer
		s.CPU = int32(lo)
	}
	if sampleType&format.SampleStreamID != 0 {
		v, ok := cursor.prev()
		if !ok {
			return s, trailerOverrun(rec, "stream id")
		}
		s.StreamID = v
	}
	if sampleType&format.SampleID != 0 {
		v, ok := cursor.prev()
		if !ok {
			return s, trailerOverrun(rec, "sample id")
		}
		s.ID = v
	}
	if sampleType&format.SampleTime != 0 {
		v, ok := cursor.prev()
		if !ok {
			return s, trailerOverrun(rec, "time")
		}
		s.Time = v
	}
	if sampleType&format.SampleTID != 0 {
		v, ok := cursor.prev()
		if !ok {
			return s, trailerOverrun(rec, "pid/tid")
		}
		lo, hi := splitU32(v)
		s.PID = int32(lo)
		s.TID = int32(hi)
	}

	return s, nil
}

// decodeSample parses the fixed-order prefix of a full sample record. The
// record must be at least as large as the attribute's static sample size;
// smaller is corruption, larger is a variable-length tail this tool does not
// track.
func decodeSample(rec *section.RawRecord, desc section.AttrDescriptor) (Sample, error) {
	s := New()

	expected := uint64(section.RecordHeaderSize) + desc.StaticSampleSize
	if uint64(rec.Header.Size) < expected {
		return s, fmt.Errorf("%w: record size %d, expected at least %d",
			errs.ErrTruncatedRecord, rec.Header.Size, expected)
	}

	sampleType := desc.Attr.SampleType
	cursor := newWordCursor(rec.Payload())

	if sampleType&format.SampleIP != 0 {
		v, ok := cursor.next()
		if !ok {
			return s, prefixOverrun(rec, "ip")
		}
		s.IP = v
	}
	if sampleType&format.SampleTID != 0 {
		v, ok := cursor.next()
		if !ok {
			return s, prefixOverrun(rec, "pid/tid")
		}
		lo, hi := splitU32(v)
		s.PID = int32(lo)
		s.TID = int32(hi)
	}
	if sampleType&format.SampleTime != 0 {
		v, ok := cursor.next()
		if !ok {
			return s, prefixOverrun(rec, "time")
		}
		s.Time = v
	}

	s.Addr = 0
	if sampleType&format.SampleAddr != 0 {
		v, ok := cursor.next()
		if !ok {
			return s, prefixOverrun(rec, "addr")
		}
		s.Addr = v
	}
	if sampleType&format.SampleID != 0 {
		v, ok := cursor.next()
		if !ok {
			return s, prefixOverrun(rec, "sample id")
		}
		s.ID = v
	}
	if sampleType&format.SampleStreamID != 0 {
		v, ok := cursor.next()
		if !ok {
			return s, prefixOverrun(rec, "stream id")
		}
		s.StreamID = v
	}
	if sampleType&format.SampleCPU != 0 {
		v, ok := cursor.next()
		if !ok {
			return s, prefixOverrun(rec, "cpu")
		}
		lo, _ := splitU32(v)
		s.CPU = int32(lo)
	}
	if sampleType&format.SamplePeriod != 0 {
		v, ok := cursor.next()
		if !ok {
			return s, prefixOverrun(rec, "period")
		}
		s.Period = v
	}
	// Variable-length fields (callchain, raw, branch stack, register and
	// user-stack dumps) may follow; the filter never needs them.

	return s, nil
}

func trailerOverrun(rec *section.RawRecord, field string) error {
	return fmt.Errorf("%w: %s record of %d bytes too small for trailer field %s",
		errs.ErrTruncatedRecord, rec.Header.Type, rec.Header.Size, field)
}

func prefixOverrun(rec *section.RawRecord, field string) error {
	return fmt.Errorf("%w: %s record of %d bytes too small for field %s",
		errs.ErrTruncatedRecord, rec.Header.Type, rec.Header.Size, field)
}
