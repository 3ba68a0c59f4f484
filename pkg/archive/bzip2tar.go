// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"io"

	"github.com/dsnet/compress/bzip2"
)

// newBzip2TarSink wraps the tar backend in a dsnet/compress/bzip2 writer. The standard library's
// compress/bzip2 package is read-only — there is no writer to reach for — and no example in the
// retrieved pack wires a bzip2 writer either, so this is the one dependency in the module that
// reaches outside the corpus; its Writer shape mirrors the standard library's own compress/gzip
// Writer closely enough that it drops into the same tarSink wrapping pattern as the pgzip backend.
func newBzip2TarSink(w io.Writer, arcroot string) *tarSink {
	bz, err := bzip2.NewWriter(w, nil)
	if err != nil {
		// bzip2.NewWriter only errors on invalid *WriterConfig; nil always validates.
		panic(err)
	}
	sink := newTarSink(bz, arcroot)
	sink.closer = bz
	return sink
}
