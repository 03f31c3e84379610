package section

import (
	"github.com/traceutil/perftrim/endian"
	"github.com/traceutil/perftrim/errs"
	"github.com/traceutil/perftrim/format"
)

// RecordHeader is the fixed prefix of every record in the data section.
type RecordHeader struct {
	// Type is the record's type code.
	Type format.RecordType
	// Misc carries type-specific flag bits; forwarded, never interpreted.
	Misc uint16
	// Size is the record's total size in bytes, header included.
	Size uint16
}

// Parse fills the header from its on-disk form (exactly RecordHeaderSize
// bytes). A record smaller than its own header cannot exist; such a size is
// rejected here so the read loop never stalls on a zero-length record.
func (h *RecordHeader) Parse(data []byte) error {
	if len(data) != RecordHeaderSize {
		return errs.ErrInvalidRecordHeader
	}

	engine := endian.Native()

	h.Type = format.RecordType(engine.Uint32(data[0:4]))
	h.Misc = engine.Uint16(data[4:6])
	h.Size = engine.Uint16(data[6:8])

	if h.Size < RecordHeaderSize {
		return errs.ErrInvalidRecordHeader
	}

	return nil
}

// Bytes serializes the header into its on-disk form.
func (h *RecordHeader) Bytes() []byte {
	b := make([]byte, RecordHeaderSize)

	engine := endian.Native()

	engine.PutUint32(b[0:4], uint32(h.Type))
	engine.PutUint16(b[4:6], h.Misc)
	engine.PutUint16(b[6:8], h.Size)

	return b
}

// RawRecord is one record as read from the data section: the parsed header
// plus the complete record bytes, header included. Records live only long
// enough to be decoded and written or dropped; the Data slice is reused
// across records by the driver.
type RawRecord struct {
	Header RecordHeader
	Data   []byte
}

// Payload returns the record bytes past the fixed header.
func (r *RawRecord) Payload() []byte {
	return r.Data[RecordHeaderSize:]
}
