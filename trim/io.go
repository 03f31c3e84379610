package trim

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/traceutil/perftrim/internal/pool"
)

// I/O helpers. Every failure names the operation and the byte count so a
// short read or write can be tied back to the section that caused it.

// read fills buf from the current input position.
func (t *Trimmer) read(buf []byte) error {
	if _, err := io.ReadFull(t.in, buf); err != nil {
		return fmt.Errorf("read %d bytes: %w", len(buf), err)
	}

	return nil
}

// write writes buf at the current output position.
func (t *Trimmer) write(buf []byte) error {
	n, err := t.out.Write(buf)
	if err != nil {
		return fmt.Errorf("write %d bytes: %w", len(buf), err)
	}
	if n < len(buf) {
		return fmt.Errorf("write %d bytes: short write of %d", len(buf), n)
	}

	return nil
}

// readAt seeks the input to offset and fills buf.
func (t *Trimmer) readAt(offset uint64, buf []byte) error {
	if _, err := t.in.Seek(int64(offset), io.SeekStart); err != nil {
		return fmt.Errorf("seek input to %d: %w", offset, err)
	}

	if _, err := io.ReadFull(t.in, buf); err != nil {
		return fmt.Errorf("read %d bytes at %d: %w", len(buf), offset, err)
	}

	return nil
}

// writeAt seeks the output to offset and writes buf.
func (t *Trimmer) writeAt(offset uint64, buf []byte) error {
	if _, err := t.out.Seek(int64(offset), io.SeekStart); err != nil {
		return fmt.Errorf("seek output to %d: %w", offset, err)
	}

	n, err := t.out.Write(buf)
	if err != nil {
		return fmt.Errorf("write %d bytes at %d: %w", len(buf), offset, err)
	}
	if n < len(buf) {
		return fmt.Errorf("write %d bytes at %d: short write of %d", len(buf), offset, n)
	}

	return nil
}

// copyAt copies len(buf) bytes from input to output at the same offset,
// leaving the copied bytes in buf for the caller to parse. If hash is
// non-nil the copied bytes are folded into it.
func (t *Trimmer) copyAt(offset uint64, buf []byte, hash *xxhash.Digest) error {
	if err := t.readAt(offset, buf); err != nil {
		return err
	}
	if err := t.writeAt(offset, buf); err != nil {
		return err
	}
	if hash != nil {
		_, _ = hash.Write(buf)
	}

	return nil
}

// copyBlockAt copies a variable-sized block verbatim at matching offsets,
// using a pooled buffer so feature payloads and id blocks do not allocate
// per block.
func (t *Trimmer) copyBlockAt(offset, size uint64, hash *xxhash.Digest) error {
	bb := pool.GetBlockBuffer()
	defer pool.PutBlockBuffer(bb)

	buf := bb.Resize(int(size))

	return t.copyAt(offset, buf, hash)
}
