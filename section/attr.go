package section

import (
	"math/bits"

	"github.com/traceutil/perftrim/endian"
	"github.com/traceutil/perftrim/errs"
	"github.com/traceutil/perftrim/format"
)

// EventAttr is the per-event attribute structure. Only the fields the
// trimmer consults are decoded; the block is copied to the output verbatim
// from its raw bytes, never re-serialized from this struct.
type EventAttr struct {
	// Type is the major event class (hardware, software, tracepoint, ...).
	Type format.AttrType
	// Size is the producer's declared attribute structure size.
	Size uint32
	// Config is the type-specific event id.
	Config uint64
	// SamplePeriod is the sampling period or frequency, depending on flags.
	SamplePeriod uint64
	// SampleType declares which optional fields each record carries.
	SampleType format.SampleFormat
	// ReadFormat shapes the counter read group; not interpreted here.
	ReadFormat uint64

	flags uint64
}

// Parse fills the attribute from its on-disk form (at least AttrSize bytes).
func (a *EventAttr) Parse(data []byte) error {
	if len(data) < AttrSize {
		return errs.ErrInvalidAttrSize
	}

	engine := endian.Native()

	a.Type = format.AttrType(engine.Uint32(data[attrTypeOffset : attrTypeOffset+4]))
	a.Size = engine.Uint32(data[attrStructSizeOffset : attrStructSizeOffset+4])
	a.Config = engine.Uint64(data[attrConfigOffset : attrConfigOffset+8])
	a.SamplePeriod = engine.Uint64(data[attrPeriodOffset : attrPeriodOffset+8])
	a.SampleType = format.SampleFormat(engine.Uint64(data[attrSampleTypeOffset : attrSampleTypeOffset+8]))
	a.ReadFormat = engine.Uint64(data[attrReadFormatOffset : attrReadFormatOffset+8])
	a.flags = engine.Uint64(data[attrFlagsOffset : attrFlagsOffset+8])

	return nil
}

// SampleIDAll reports whether every record of this event, not just full
// samples, carries the identity trailer.
func (a *EventAttr) SampleIDAll() bool {
	return a.flags&(1<<sampleIDAllBit) != 0
}

// SamplesTime reports whether records of this event carry a timestamp field.
func (a *EventAttr) SamplesTime() bool {
	return a.SampleType&format.SampleTime != 0
}

// StaticSampleSize returns the byte size of the fixed-width prefix of a
// sample record produced under this attribute: one 8-byte word per static
// field requested in SampleType. Variable-length fields are excluded.
func (a *EventAttr) StaticSampleSize() uint64 {
	mask := uint64(a.SampleType & format.StaticSampleMask)

	return uint64(bits.OnesCount64(mask)) * 8
}

// FileAttr is one block of the attribute section: the attribute itself plus
// the descriptor of its ids block elsewhere in the file.
type FileAttr struct {
	Attr EventAttr
	// IDs locates the attribute's sample-id block; a zero size means the
	// attribute has none.
	IDs FileSection
}

// Parse fills the block from its on-disk form (exactly FileAttrSize bytes).
func (fa *FileAttr) Parse(data []byte) error {
	if len(data) != FileAttrSize {
		return errs.ErrInvalidAttrSize
	}

	if err := fa.Attr.Parse(data[:AttrSize]); err != nil {
		return err
	}
	fa.IDs = parseSection(data[attrIDsOffset : attrIDsOffset+SectionSize])

	return nil
}

// AttrDescriptor is a registered attribute with its cached static sample
// size. The cache avoids recomputing the population count per record.
type AttrDescriptor struct {
	Attr             EventAttr
	StaticSampleSize uint64
}

// AttrRegistry holds the capture's attributes in file order. It is built
// once while the attribute section streams through and is read-only
// afterwards. By convention of the producing system the first entry
// describes the layout of every data record, whichever attribute actually
// produced it; the rest are retained for completeness.
type AttrRegistry struct {
	descriptors []AttrDescriptor
}

// Add validates the attribute's sampling prerequisites and appends it.
// Both violations are fatal: without a time field or the identity trailer
// the filter has no way to locate a timestamp.
func (r *AttrRegistry) Add(attr EventAttr) error {
	if !attr.SamplesTime() && !attr.SampleIDAll() {
		return errs.ErrNoTimeSource
	}
	if !attr.SampleIDAll() {
		return errs.ErrNoSampleIDAll
	}

	r.descriptors = append(r.descriptors, AttrDescriptor{
		Attr:             attr,
		StaticSampleSize: attr.StaticSampleSize(),
	})

	return nil
}

// First returns the descriptor that governs record layout.
func (r *AttrRegistry) First() (AttrDescriptor, error) {
	if len(r.descriptors) == 0 {
		return AttrDescriptor{}, errs.ErrNoAttributes
	}

	return r.descriptors[0], nil
}

// Len returns the number of registered attributes.
func (r *AttrRegistry) Len() int {
	return len(r.descriptors)
}

// At returns the descriptor at index i in file order.
func (r *AttrRegistry) At(i int) AttrDescriptor {
	return r.descriptors[i]
}
