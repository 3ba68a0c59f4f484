// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"io"

	"github.com/klauspost/pgzip"
)

// newGzipTarSink wraps the tar backend in a pgzip writer instead of the standard library's
// compress/gzip, the way the distri lineage does it: pgzip parallelizes DEFLATE across blocks,
// which matters because packed conda environments routinely contain tens of thousands of files and
// a single-threaded gzip pass dominates wall-clock time on multi-core build machines.
func newGzipTarSink(w io.Writer, arcroot string) *tarSink {
	gz := pgzip.NewWriter(w)
	sink := newTarSink(gz, arcroot)
	sink.closer = gz
	return sink
}
