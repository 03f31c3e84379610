// Package section defines the fixed on-disk structures of a perf capture:
// the container header, the (offset, size) section descriptor, the per-event
// attribute block and the record header. Each structure parses from and
// serializes to its exact on-disk layout; parsing and serialization are
// inverses so sections the trimmer does not interpret round-trip untouched.
package section

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/traceutil/perftrim/endian"
	"github.com/traceutil/perftrim/errs"
	"github.com/traceutil/perftrim/format"
)

// FileSection locates a region of the capture file.
type FileSection struct {
	Offset uint64
	Size   uint64
}

// End returns the first byte offset past the section.
func (s FileSection) End() uint64 {
	return s.Offset + s.Size
}

// ParseFileSection parses one (offset, size) descriptor from exactly
// SectionSize bytes.
func ParseFileSection(data []byte) (FileSection, error) {
	if len(data) != SectionSize {
		return FileSection{}, fmt.Errorf("%w: section descriptor of %d bytes", errs.ErrInvalidHeaderSize, len(data))
	}

	return parseSection(data), nil
}

func parseSection(data []byte) FileSection {
	engine := endian.Native()

	return FileSection{
		Offset: engine.Uint64(data[0:8]),
		Size:   engine.Uint64(data[8:16]),
	}
}

func putSection(data []byte, s FileSection) {
	engine := endian.Native()
	engine.PutUint64(data[0:8], s.Offset)
	engine.PutUint64(data[8:16], s.Size)
}

// FileHeader is the fixed-size header at offset zero of a capture.
type FileHeader struct {
	// Magic identifies the file and encodes the producing host's byte order.
	Magic uint64
	// Size is the producer's header size; must equal HeaderSize.
	Size uint64
	// AttrSize is the producer's size of one attribute block; must equal
	// FileAttrSize.
	AttrSize uint64
	// Attrs, Data and EventTypes locate the three inner sections.
	Attrs      FileSection
	Data       FileSection
	EventTypes FileSection
	// Features is the feature bitmap; its population count is the number of
	// trailer sections following the data section.
	Features [FeatureBitmapSize]byte
}

// Parse fills the header from its on-disk form. The data must be exactly
// HeaderSize bytes; content validation is a separate step (Validate).
func (h *FileHeader) Parse(data []byte) error {
	if len(data) != HeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	engine := endian.Native()

	h.Magic = engine.Uint64(data[magicOffset : magicOffset+8])
	h.Size = engine.Uint64(data[sizeOffset : sizeOffset+8])
	h.AttrSize = engine.Uint64(data[attrSizeOffset : attrSizeOffset+8])
	h.Attrs = parseSection(data[attrsOffset : attrsOffset+SectionSize])
	h.Data = parseSection(data[dataOffset : dataOffset+SectionSize])
	h.EventTypes = parseSection(data[eventTypesOffset : eventTypesOffset+SectionSize])
	copy(h.Features[:], data[featuresOffset:featuresOffset+FeatureBitmapSize])

	return nil
}

// Bytes serializes the header into its on-disk form.
func (h *FileHeader) Bytes() []byte {
	b := make([]byte, HeaderSize)

	engine := endian.Native()

	engine.PutUint64(b[magicOffset:magicOffset+8], h.Magic)
	engine.PutUint64(b[sizeOffset:sizeOffset+8], h.Size)
	engine.PutUint64(b[attrSizeOffset:attrSizeOffset+8], h.AttrSize)
	putSection(b[attrsOffset:attrsOffset+SectionSize], h.Attrs)
	putSection(b[dataOffset:dataOffset+SectionSize], h.Data)
	putSection(b[eventTypesOffset:eventTypesOffset+SectionSize], h.EventTypes)
	copy(b[featuresOffset:featuresOffset+FeatureBitmapSize], h.Features[:])

	return b
}

// Validate checks the header identifies a capture this tool can process.
// Checks run in order: magic, byte order, legacy container, header size.
// Any failure is fatal to the run.
func (h *FileHeader) Validate() error {
	var magicBytes [8]byte
	endian.Native().PutUint64(magicBytes[:], h.Magic)

	switch {
	case bytes.Equal(magicBytes[:], format.LegacyMagic[:]):
		return errs.ErrLegacyFormat
	case h.Magic == format.MagicSwapped:
		return errs.ErrMismatchedEndianness
	case h.Magic != format.Magic:
		return errs.ErrBadMagic
	}

	if h.Size != HeaderSize {
		if h.Size == LegacyHeaderSize {
			return errs.ErrLegacyHeader
		}

		return fmt.Errorf("%w: %d", errs.ErrInvalidHeaderSize, h.Size)
	}

	return nil
}

// FeatureCount returns the number of trailer sections the capture carries,
// i.e. the population count of the feature bitmap.
func (h *FileHeader) FeatureCount() int {
	count := 0
	for _, b := range h.Features {
		count += bits.OnesCount8(b)
	}

	return count
}

// ParseFileHeader parses and validates a header from a byte slice.
func ParseFileHeader(data []byte) (FileHeader, error) {
	var h FileHeader
	if err := h.Parse(data); err != nil {
		return FileHeader{}, err
	}
	if err := h.Validate(); err != nil {
		return FileHeader{}, err
	}

	return h, nil
}
