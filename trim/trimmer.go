// Package trim drives the five-section transfer that turns a full capture
// into a time-windowed one.
//
// The driver validates the container header, registers the event attributes,
// copies the attribute and event-type sections verbatim, streams the record
// section through the layout engine and the time filter, patches the output
// header's data-size field, and finally copies the feature trailer verbatim.
// Input and output positions move strictly forward except for the single
// seek back to the header once the record stream is done.
//
// Sections skipped in the record stream leave holes in the output file:
// every surviving byte keeps its original offset, so the trailer and the
// attribute blocks stay addressable by the offsets the header declares.
package trim

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"github.com/traceutil/perftrim/errs"
	"github.com/traceutil/perftrim/filter"
	"github.com/traceutil/perftrim/format"
	"github.com/traceutil/perftrim/internal/options"
	"github.com/traceutil/perftrim/internal/pool"
	"github.com/traceutil/perftrim/sample"
	"github.com/traceutil/perftrim/section"
)

// Digests holds xxHash64 digests of the bytes the driver moved, one per
// section. For sections copied verbatim the digest is computed over the
// input bytes and therefore equals a digest of the corresponding output
// region; the record digest covers only the records actually written.
type Digests struct {
	Header     uint64
	Attrs      uint64
	EventTypes uint64
	Records    uint64
	Features   uint64
}

// Stats summarizes one run.
type Stats struct {
	// Attrs is the number of registered event attributes.
	Attrs int
	// RecordsProcessed counts every record in the input stream.
	RecordsProcessed uint64
	// RecordsKept counts records written to the output.
	RecordsKept uint64
	// RecordsDropped counts records excluded by the time window.
	RecordsDropped uint64
	// BytesProcessed is the record-section byte count consumed.
	BytesProcessed uint64
	// BytesWritten is the record-section byte count written; this value is
	// patched into the output header's data-size field.
	BytesWritten uint64
	// Digests is set when digest collection is enabled.
	Digests *Digests
}

// Trimmer performs one trimming run over a pair of open files.
type Trimmer struct {
	in  io.ReadSeeker
	out io.WriteSeeker

	filter *filter.Filter
	logger *logrus.Logger

	collectDigests bool
}

// Option configures a Trimmer.
type Option = options.Option[*Trimmer]

// WithLogger routes the trimmer's diagnostics to the given logger. Without
// it the trimmer is silent.
func WithLogger(logger *logrus.Logger) Option {
	return options.New(func(t *Trimmer) error {
		if logger == nil {
			return fmt.Errorf("nil logger")
		}
		t.logger = logger

		return nil
	})
}

// WithDigests enables per-section xxHash64 digest collection in Stats.
func WithDigests() Option {
	return options.NoError(func(t *Trimmer) {
		t.collectDigests = true
	})
}

// New creates a Trimmer reading from in and writing to out, keeping records
// that fall inside the window. Both files must be positioned at offset zero
// and stay untouched by the caller until Run returns.
func New(in io.ReadSeeker, out io.WriteSeeker, window filter.Window, opts ...Option) (*Trimmer, error) {
	t := &Trimmer{
		in:     in,
		out:    out,
		filter: filter.New(window),
		logger: discardLogger(),
	}

	if err := options.Apply(t, opts...); err != nil {
		return nil, err
	}

	return t, nil
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return logger
}

// Run performs the full five-section transfer. Any error is fatal; the
// output file is then incomplete and must not be consumed.
func (t *Trimmer) Run() (Stats, error) {
	var stats Stats

	var digests Digests
	if t.collectDigests {
		stats.Digests = &digests
	}

	header, err := t.transferHeader(&digests)
	if err != nil {
		return stats, err
	}

	if header.Data.Size == 0 {
		t.logger.Warn("data section size is zero; was the recording terminated properly?")
	}

	registry, err := t.transferAttrs(&header, &digests)
	if err != nil {
		return stats, err
	}
	stats.Attrs = registry.Len()

	if err := t.transferEventTypes(&header, &digests); err != nil {
		return stats, err
	}

	if err := t.transferRecords(&header, registry, &stats, &digests); err != nil {
		return stats, err
	}

	if err := t.patchHeader(&header, stats.BytesWritten); err != nil {
		return stats, err
	}

	if err := t.transferFeatures(&header, &digests); err != nil {
		return stats, err
	}

	return stats, nil
}

// transferHeader reads, validates and forwards the container header. The
// header is forwarded byte-for-byte; the data-size patch happens at the end
// of the run.
func (t *Trimmer) transferHeader(digests *Digests) (section.FileHeader, error) {
	buf := make([]byte, section.HeaderSize)
	if err := t.readAt(0, buf); err != nil {
		return section.FileHeader{}, fmt.Errorf("container header: %w", err)
	}

	header, err := section.ParseFileHeader(buf)
	if err != nil {
		return section.FileHeader{}, err
	}

	if err := t.writeAt(0, buf); err != nil {
		return section.FileHeader{}, fmt.Errorf("container header: %w", err)
	}

	if t.collectDigests {
		digests.Header = xxhash.Sum64(buf)
	}

	t.logger.WithFields(logrus.Fields{
		"attrs_size":       header.Attrs.Size,
		"data_size":        header.Data.Size,
		"event_types_size": header.EventTypes.Size,
		"features":         header.FeatureCount(),
	}).Debug("validated container header")

	return header, nil
}

// transferAttrs copies each attribute block and its ids block verbatim at
// identical offsets, validating and registering every attribute on the way.
func (t *Trimmer) transferAttrs(header *section.FileHeader, digests *Digests) (*section.AttrRegistry, error) {
	if header.AttrSize != section.FileAttrSize {
		return nil, fmt.Errorf("%w: header declares %d, expected %d",
			errs.ErrInvalidAttrSize, header.AttrSize, section.FileAttrSize)
	}

	var hash *xxhash.Digest
	if t.collectDigests {
		hash = xxhash.New()
	}

	registry := &section.AttrRegistry{}

	buf := make([]byte, section.FileAttrSize)
	count := header.Attrs.Size / header.AttrSize
	for i := uint64(0); i < count; i++ {
		offset := header.Attrs.Offset + i*header.AttrSize

		if err := t.copyAt(offset, buf, hash); err != nil {
			return nil, fmt.Errorf("attribute %d: %w", i, err)
		}

		var fa section.FileAttr
		if err := fa.Parse(buf); err != nil {
			return nil, fmt.Errorf("attribute %d: %w", i, err)
		}

		if fa.IDs.Size > 0 {
			if err := t.copyBlockAt(fa.IDs.Offset, fa.IDs.Size, hash); err != nil {
				return nil, fmt.Errorf("attribute %d ids block: %w", i, err)
			}
		}

		if err := registry.Add(fa.Attr); err != nil {
			return nil, fmt.Errorf("attribute %d (%s): %w", i, fa.Attr.Type, err)
		}

		t.logger.WithFields(logrus.Fields{
			"type":        fa.Attr.Type.String(),
			"sample_type": fa.Attr.SampleType.String(),
			"static_size": fa.Attr.StaticSampleSize(),
		}).Debug("registered event attribute")
	}

	if registry.Len() == 0 {
		return nil, errs.ErrNoAttributes
	}

	if hash != nil {
		digests.Attrs = hash.Sum64()
	}

	return registry, nil
}

// transferEventTypes copies the event-type metadata section verbatim.
func (t *Trimmer) transferEventTypes(header *section.FileHeader, digests *Digests) error {
	var hash *xxhash.Digest
	if t.collectDigests {
		hash = xxhash.New()
	}

	if header.EventTypes.Size > 0 {
		if err := t.copyBlockAt(header.EventTypes.Offset, header.EventTypes.Size, hash); err != nil {
			return fmt.Errorf("event types section: %w", err)
		}
	}

	if hash != nil {
		digests.EventTypes = hash.Sum64()
	}

	return nil
}

// transferRecords streams the record section, keeping records the filter
// accepts. Input and output stop moving in lockstep here: dropped records
// advance only the input position.
func (t *Trimmer) transferRecords(header *section.FileHeader, registry *section.AttrRegistry, stats *Stats, digests *Digests) error {
	first, err := registry.First()
	if err != nil {
		return err
	}

	var hash *xxhash.Digest
	if t.collectDigests {
		hash = xxhash.New()
	}

	if _, err := t.in.Seek(int64(header.Data.Offset), io.SeekStart); err != nil {
		return fmt.Errorf("seek input to data section at %d: %w", header.Data.Offset, err)
	}
	if _, err := t.out.Seek(int64(header.Data.Offset), io.SeekStart); err != nil {
		return fmt.Errorf("seek output to data section at %d: %w", header.Data.Offset, err)
	}

	buf := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(buf)

	for stats.BytesProcessed < header.Data.Size {
		rec, err := t.readRecord(buf)
		if err != nil {
			return err
		}

		keep, err := t.decide(rec, first)
		if err != nil {
			return err
		}

		if keep {
			if err := t.write(rec.Data); err != nil {
				return fmt.Errorf("record %d: %w", stats.RecordsProcessed, err)
			}
			if hash != nil {
				_, _ = hash.Write(rec.Data)
			}
			stats.BytesWritten += uint64(rec.Header.Size)
			stats.RecordsKept++
		} else {
			stats.RecordsDropped++
		}

		stats.BytesProcessed += uint64(rec.Header.Size)
		stats.RecordsProcessed++
	}

	if hash != nil {
		digests.Records = hash.Sum64()
	}

	t.logger.WithFields(logrus.Fields{
		"processed": stats.RecordsProcessed,
		"kept":      stats.RecordsKept,
		"dropped":   stats.RecordsDropped,
	}).Debug("record section done")

	return nil
}

// readRecord reads one full record at the current input position into buf.
func (t *Trimmer) readRecord(buf *pool.ByteBuffer) (section.RawRecord, error) {
	head := buf.Resize(section.RecordHeaderSize)
	if err := t.read(head); err != nil {
		return section.RawRecord{}, fmt.Errorf("record header: %w", err)
	}

	var rh section.RecordHeader
	if err := rh.Parse(head); err != nil {
		return section.RawRecord{}, err
	}

	data := buf.Resize(int(rh.Size))
	if err := t.read(data[section.RecordHeaderSize:]); err != nil {
		return section.RawRecord{}, fmt.Errorf("%s record of %d bytes: %w", rh.Type, rh.Size, err)
	}

	return section.RawRecord{Header: rh, Data: data}, nil
}

// decide runs the layout engine and the filter over one record.
func (t *Trimmer) decide(rec section.RawRecord, first section.AttrDescriptor) (bool, error) {
	// Flush markers carry no fields and are kept without decoding.
	if rec.Header.Type == format.RecordFinishedRound {
		return true, nil
	}

	s, err := sample.Decode(&rec, first)
	if err != nil {
		return false, err
	}

	keep := t.filter.Keep(rec.Header.Type, &s)

	if t.logger.IsLevelEnabled(logrus.DebugLevel) {
		rel, relKnown := t.filter.RelativeTime(&s)
		fields := logrus.Fields{
			"type": rec.Header.Type.String(),
			"size": rec.Header.Size,
			"cpu":  s.CPU,
			"pid":  s.PID,
			"tid":  s.TID,
			"time": s.Time,
			"keep": keep,
		}
		if relKnown {
			fields["rel_time"] = rel
		}
		t.logger.WithFields(fields).Debug("record")
	}

	return keep, nil
}

// patchHeader rewrites the output header with the data-size field replaced
// by the byte count actually written. All other fields carry through.
func (t *Trimmer) patchHeader(header *section.FileHeader, bytesWritten uint64) error {
	patched := *header
	patched.Data.Size = bytesWritten

	if err := t.writeAt(0, patched.Bytes()); err != nil {
		return fmt.Errorf("patch container header: %w", err)
	}

	return nil
}

// transferFeatures copies the feature trailer: one section descriptor per
// set bit in the header's feature bitmap, each followed by the data it
// points to, all at offsets matching the input file. The trailer starts at
// the end of the input's data section regardless of how many records were
// dropped.
func (t *Trimmer) transferFeatures(header *section.FileHeader, digests *Digests) error {
	var hash *xxhash.Digest
	if t.collectDigests {
		hash = xxhash.New()
	}

	featOffset := header.Data.Offset + header.Data.Size
	count := header.FeatureCount()

	buf := make([]byte, section.SectionSize)
	for i := 0; i < count; i++ {
		offset := featOffset + uint64(i)*section.SectionSize

		if err := t.copyAt(offset, buf, hash); err != nil {
			return fmt.Errorf("feature descriptor %d: %w", i, err)
		}

		desc, err := section.ParseFileSection(buf)
		if err != nil {
			return err
		}

		if desc.Size > 0 {
			if err := t.copyBlockAt(desc.Offset, desc.Size, hash); err != nil {
				return fmt.Errorf("feature block %d: %w", i, err)
			}
		}
	}

	if hash != nil {
		digests.Features = hash.Sum64()
	}

	return nil
}
