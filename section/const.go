package section

import "github.com/traceutil/perftrim/format"

// Fixed sizes of the container's on-disk structures. These are ABI values;
// a capture declaring different sizes was produced by an incompatible
// toolchain and is rejected rather than reinterpreted.
const (
	// HeaderSize is the size of the modern container header: magic, header
	// size, attribute-record size, three section descriptors and the
	// feature bitmap.
	HeaderSize = 8 + 8 + 8 + 3*SectionSize + FeatureBitmapSize // 104

	// LegacyHeaderSize is the recognized pre-feature-bitmap header size.
	// Captures declaring it are rejected with a dedicated error.
	LegacyHeaderSize = HeaderSize - FeatureBitmapSize // 72

	// SectionSize is the size of one (offset, size) section descriptor.
	SectionSize = 16

	// FeatureBitmapSize is the feature bitmap's size in bytes.
	FeatureBitmapSize = format.FeatureBits / 8 // 32

	// AttrSize is the size of one event attribute structure.
	AttrSize = 96

	// FileAttrSize is one attribute block as stored in the attribute
	// section: the attribute plus the descriptor of its ids block.
	FileAttrSize = AttrSize + SectionSize // 112

	// RecordHeaderSize is the fixed prefix of every record: type (4 bytes),
	// misc flags (2 bytes) and total record size (2 bytes).
	RecordHeaderSize = 8
)

// Byte offsets within the container header.
const (
	magicOffset      = 0
	sizeOffset       = 8
	attrSizeOffset   = 16
	attrsOffset      = 24
	dataOffset       = 40
	eventTypesOffset = 56
	featuresOffset   = 72
)

// Byte offsets within an event attribute structure.
const (
	attrTypeOffset       = 0
	attrStructSizeOffset = 4
	attrConfigOffset     = 8
	attrPeriodOffset     = 16
	attrSampleTypeOffset = 24
	attrReadFormatOffset = 32
	attrFlagsOffset      = 40
	attrIDsOffset        = AttrSize
)

// sampleIDAllBit is the position of the sample_id_all flag within the
// attribute's packed flag word at attrFlagsOffset.
const sampleIDAllBit = 18
