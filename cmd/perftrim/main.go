// perftrim extracts a timestamp-bounded sub-range of a perf capture file
// into a new, smaller capture of the same format.
package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/traceutil/perftrim"
	"github.com/traceutil/perftrim/filter"
	"github.com/traceutil/perftrim/trim"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "perftrim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	inputPath := flag.String("i", "perf.data", "input capture file (.zst and .lz4 are decompressed transparently)")
	outputPath := flag.String("o", "perf.data.trimmed", "output capture file")
	begin := flag.Uint64("b", 0, "begin timestamp; records before it are excluded")
	end := flag.Uint64("e", 0, "end timestamp; records after it are excluded (0 means unbounded)")
	start := flag.Uint64("s", 0, "program-start timestamp the begin/end bounds are relative to; "+
		"obtain it with clock_gettime(CLOCK_MONOTONIC_RAW) as early as possible in the traced program")
	verbose := flag.Bool("v", false, "log every record decision")
	digest := flag.Bool("digest", false, "print per-section xxHash64 digests of the transferred bytes")
	flag.Parse()

	logger := log.New()
	logger.SetOutput(os.Stderr)
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if *start == 0 && *begin != 0 {
		logger.Warn("no program-start timestamp given; begin/end bounds will not be calibrated to the capture's clock")
	}

	endBound := *end
	if endBound == 0 {
		endBound = filter.DefaultEnd
	}

	window, err := filter.NewWindow(*begin, endBound, *start)
	if err != nil {
		return fmt.Errorf("window bounds (-b %d -e %d -s %d): %w", *begin, *end, *start, err)
	}

	opts := []perftrim.Option{trim.WithLogger(logger)}
	if *digest {
		opts = append(opts, trim.WithDigests())
	}

	stats, err := perftrim.Trim(*inputPath, *outputPath, window, opts...)
	if err != nil {
		return err
	}

	logger.WithFields(log.Fields{
		"attrs":     stats.Attrs,
		"processed": stats.RecordsProcessed,
		"kept":      stats.RecordsKept,
		"dropped":   stats.RecordsDropped,
		"bytes_in":  stats.BytesProcessed,
		"bytes_out": stats.BytesWritten,
	}).Info("trimmed capture written")

	if stats.Digests != nil {
		fmt.Printf("header     %016x\n", stats.Digests.Header)
		fmt.Printf("attrs      %016x\n", stats.Digests.Attrs)
		fmt.Printf("eventtypes %016x\n", stats.Digests.EventTypes)
		fmt.Printf("records    %016x\n", stats.Digests.Records)
		fmt.Printf("features   %016x\n", stats.Digests.Features)
	}

	return nil
}
