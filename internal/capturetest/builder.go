// Package capturetest builds synthetic capture files for tests. The builder
// lays out the five sections the way the recording tool does (header,
// attribute blocks with optional ids blocks, event-type metadata, record
// stream, feature trailer) so tests exercise the real byte layout without
// shipping binary fixtures.
package capturetest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/traceutil/perftrim/endian"
	"github.com/traceutil/perftrim/format"
	"github.com/traceutil/perftrim/section"
)

// AttrSpec describes one event attribute block.
type AttrSpec struct {
	Type        format.AttrType
	SampleType  format.SampleFormat
	SampleIDAll bool
	// IDs become the attribute's ids block; empty means no block.
	IDs []uint64
}

// SampleSpec carries the field values for one full sample record. Only the
// fields selected by the builder's sample type are written.
type SampleSpec struct {
	IP       uint64
	PID      uint32
	TID      uint32
	Time     uint64
	Addr     uint64
	ID       uint64
	StreamID uint64
	CPU      uint32
	Period   uint64
	// ExtraTail appends untracked variable-length bytes past the static
	// prefix, in whole words.
	ExtraTail int
}

// TrailerSpec carries the identity-trailer values for a non-sample record.
type TrailerSpec struct {
	PID      uint32
	TID      uint32
	Time     uint64
	ID       uint64
	StreamID uint64
	CPU      uint32
}

// Builder assembles a capture file.
type Builder struct {
	attrs      []AttrSpec
	eventTypes []byte
	records    [][]byte
	features   [][]byte
}

// NewBuilder returns a builder with a single attribute of the given sample
// type, identity trailer enabled. Most tests need exactly that.
func NewBuilder(sampleType format.SampleFormat) *Builder {
	return &Builder{
		attrs: []AttrSpec{{
			Type:        format.AttrHardware,
			SampleType:  sampleType,
			SampleIDAll: true,
		}},
	}
}

// SetAttrs replaces the attribute list.
func (b *Builder) SetAttrs(attrs ...AttrSpec) *Builder {
	b.attrs = attrs
	return b
}

// SetEventTypes sets the event-type metadata section bytes.
func (b *Builder) SetEventTypes(data []byte) *Builder {
	b.eventTypes = data
	return b
}

// AddFeature appends one feature trailer block with the given payload.
func (b *Builder) AddFeature(payload []byte) *Builder {
	b.features = append(b.features, payload)
	return b
}

func (b *Builder) sampleType() format.SampleFormat {
	return b.attrs[0].SampleType
}

func appendU64(buf []byte, v uint64) []byte {
	return endian.Native().AppendUint64(buf, v)
}

func recordHeader(recType format.RecordType, size int) []byte {
	h := section.RecordHeader{Type: recType, Misc: 0, Size: uint16(size)}
	return h.Bytes()
}

// AddRecord appends a raw record with the given type and payload.
func (b *Builder) AddRecord(recType format.RecordType, payload []byte) *Builder {
	rec := recordHeader(recType, section.RecordHeaderSize+len(payload))
	rec = append(rec, payload...)
	b.records = append(b.records, rec)

	return b
}

// trailer renders the identity trailer for the builder's sample type: on
// disk the fields run TID, TIME, ID, STREAM_ID, CPU so that a backward walk
// from the record end meets them in reverse.
func (b *Builder) trailer(spec TrailerSpec) []byte {
	st := b.sampleType()

	var buf []byte
	if st&format.SampleTID != 0 {
		buf = appendU64(buf, uint64(spec.PID)|uint64(spec.TID)<<32)
	}
	if st&format.SampleTime != 0 {
		buf = appendU64(buf, spec.Time)
	}
	if st&format.SampleID != 0 {
		buf = appendU64(buf, spec.ID)
	}
	if st&format.SampleStreamID != 0 {
		buf = appendU64(buf, spec.StreamID)
	}
	if st&format.SampleCPU != 0 {
		buf = appendU64(buf, uint64(spec.CPU))
	}

	return buf
}

// AddComm appends a process-rename record: a fixed 24-byte body (pid, tid,
// command name) followed by the identity trailer.
func (b *Builder) AddComm(spec TrailerSpec, comm string) *Builder {
	body := make([]byte, 0, 24)
	body = appendU64(body, uint64(spec.PID)|uint64(spec.TID)<<32)

	var name [16]byte
	copy(name[:], comm)
	body = append(body, name[:]...)

	return b.AddRecord(format.RecordComm, append(body, b.trailer(spec)...))
}

// AddExit appends a process-exit record: pid/tid words plus the trailer.
func (b *Builder) AddExit(spec TrailerSpec) *Builder {
	body := make([]byte, 0, 24)
	body = appendU64(body, uint64(spec.PID)|uint64(spec.TID)<<32)
	body = appendU64(body, uint64(spec.PID)|uint64(spec.TID)<<32)
	body = appendU64(body, spec.Time)

	return b.AddRecord(format.RecordExit, append(body, b.trailer(spec)...))
}

// AddFinishedRound appends the producer's flush marker.
func (b *Builder) AddFinishedRound() *Builder {
	return b.AddRecord(format.RecordFinishedRound, nil)
}

// AddSample appends a full sample record with the static prefix the
// builder's sample type declares.
func (b *Builder) AddSample(spec SampleSpec) *Builder {
	st := b.sampleType()

	var buf []byte
	if st&format.SampleIP != 0 {
		buf = appendU64(buf, spec.IP)
	}
	if st&format.SampleTID != 0 {
		buf = appendU64(buf, uint64(spec.PID)|uint64(spec.TID)<<32)
	}
	if st&format.SampleTime != 0 {
		buf = appendU64(buf, spec.Time)
	}
	if st&format.SampleAddr != 0 {
		buf = appendU64(buf, spec.Addr)
	}
	if st&format.SampleID != 0 {
		buf = appendU64(buf, spec.ID)
	}
	if st&format.SampleStreamID != 0 {
		buf = appendU64(buf, spec.StreamID)
	}
	if st&format.SampleCPU != 0 {
		buf = appendU64(buf, uint64(spec.CPU))
	}
	if st&format.SamplePeriod != 0 {
		buf = appendU64(buf, spec.Period)
	}

	for i := 0; i < spec.ExtraTail; i++ {
		buf = appendU64(buf, 0xdeadbeef)
	}

	return b.AddRecord(format.RecordSample, buf)
}

// AddTruncatedSample appends a sample record whose declared size is one
// word short of the attribute's static sample size.
func (b *Builder) AddTruncatedSample(spec SampleSpec) *Builder {
	full := b.render(func() { b.AddSample(spec) })
	short := full[:len(full)-8]
	engine := endian.Native()
	engine.PutUint16(short[6:8], uint16(len(short)))
	b.records = append(b.records, short)

	return b
}

// render runs add against a scratch record list and returns the record it
// produced.
func (b *Builder) render(add func()) []byte {
	saved := b.records
	b.records = nil
	add()
	rec := b.records[len(b.records)-1]
	b.records = saved

	return rec
}

func (b *Builder) attrBlock(spec AttrSpec, ids section.FileSection) []byte {
	engine := endian.Native()
	buf := make([]byte, section.FileAttrSize)

	engine.PutUint32(buf[0:4], uint32(spec.Type))
	engine.PutUint32(buf[4:8], section.AttrSize)
	engine.PutUint64(buf[24:32], uint64(spec.SampleType))

	var flags uint64
	if spec.SampleIDAll {
		flags |= 1 << 18
	}
	engine.PutUint64(buf[40:48], flags)

	engine.PutUint64(buf[96:104], ids.Offset)
	engine.PutUint64(buf[104:112], ids.Size)

	return buf
}

// Bytes assembles the capture file.
func (b *Builder) Bytes() []byte {
	attrsOffset := uint64(section.HeaderSize)
	attrsSize := uint64(len(b.attrs)) * section.FileAttrSize

	// ids blocks sit directly after the attribute section.
	idsOffset := attrsOffset + attrsSize
	idsSections := make([]section.FileSection, len(b.attrs))
	for i, a := range b.attrs {
		size := uint64(len(a.IDs)) * 8
		idsSections[i] = section.FileSection{Offset: idsOffset, Size: size}
		idsOffset += size
	}

	eventTypesOffset := idsOffset
	dataOffset := eventTypesOffset + uint64(len(b.eventTypes))

	var data []byte
	for _, rec := range b.records {
		data = append(data, rec...)
	}

	header := section.FileHeader{
		Magic:      format.Magic,
		Size:       section.HeaderSize,
		AttrSize:   section.FileAttrSize,
		Attrs:      section.FileSection{Offset: attrsOffset, Size: attrsSize},
		Data:       section.FileSection{Offset: dataOffset, Size: uint64(len(data))},
		EventTypes: section.FileSection{Offset: eventTypesOffset, Size: uint64(len(b.eventTypes))},
	}
	for i := range b.features {
		header.Features[(i+1)/8] |= 1 << uint((i+1)%8)
	}

	out := header.Bytes()
	for i, a := range b.attrs {
		out = append(out, b.attrBlock(a, idsSections[i])...)
	}
	for _, a := range b.attrs {
		for _, id := range a.IDs {
			out = appendU64(out, id)
		}
	}
	out = append(out, b.eventTypes...)
	out = append(out, data...)

	// Feature trailer: descriptors first, then the payloads they point to.
	featOffset := dataOffset + uint64(len(data))
	payloadOffset := featOffset + uint64(len(b.features))*section.SectionSize
	var descs, payloads []byte
	for _, p := range b.features {
		descs = appendU64(descs, payloadOffset)
		descs = appendU64(descs, uint64(len(p)))
		payloads = append(payloads, p...)
		payloadOffset += uint64(len(p))
	}
	out = append(out, descs...)
	out = append(out, payloads...)

	return out
}

// WriteFile writes the assembled capture into dir and returns its path.
func (b *Builder) WriteFile(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))

	return path
}
