// Package perftrim extracts a timestamp-bounded sub-range of a perf capture
// file, producing a valid, smaller capture of the same format.
//
// The capture's five sections (container header, event attributes, event
// types, record stream, feature trailer) are transferred to the output
// with every byte at its original offset; only records of the data section
// whose timestamps fall outside the requested window are dropped, and the
// header's data-size field is patched to the byte count actually written.
// Downstream analyzers read the trimmed file exactly like the original.
//
// # Basic Usage
//
//	import (
//	    "github.com/traceutil/perftrim"
//	    "github.com/traceutil/perftrim/filter"
//	)
//
//	window, err := filter.NewWindow(beginTS, endTS, startTS)
//	if err != nil {
//	    return err
//	}
//
//	stats, err := perftrim.Trim("perf.data", "perf.data.trimmed", window)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("kept %d of %d records\n", stats.RecordsKept, stats.RecordsProcessed)
//
// Timestamps are in the capture's own clock units (nanoseconds). The window
// is calibrated against the first process-rename record carrying a nonzero
// timestamp; records the filter cannot place on the capture's clock are
// always kept. Compressed captures (.zst, .lz4) are decompressed
// transparently on input.
package perftrim

import (
	"fmt"
	"os"

	"github.com/traceutil/perftrim/compress"
	"github.com/traceutil/perftrim/filter"
	"github.com/traceutil/perftrim/trim"
)

// Option configures a trimming run. See trim.WithLogger and trim.WithDigests.
type Option = trim.Option

// Stats summarizes a trimming run. See trim.Stats.
type Stats = trim.Stats

// Trim copies the capture at inputPath to outputPath, keeping only records
// inside the window. The output file is created (or truncated) first; on
// error it is left behind incomplete and must not be consumed.
func Trim(inputPath, outputPath string, window filter.Window, opts ...Option) (Stats, error) {
	in, err := compress.OpenCapture(inputPath)
	if err != nil {
		return Stats{}, fmt.Errorf("open input %s: %w", inputPath, err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return Stats{}, fmt.Errorf("create output %s: %w", outputPath, err)
	}
	defer out.Close()

	trimmer, err := trim.New(in, out, window, opts...)
	if err != nil {
		return Stats{}, err
	}

	stats, err := trimmer.Run()
	if err != nil {
		return stats, err
	}

	if err := out.Close(); err != nil {
		return stats, fmt.Errorf("close output %s: %w", outputPath, err)
	}

	return stats, nil
}
