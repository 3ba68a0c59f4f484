// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path"
	"time"

	"github.com/datawire/envpack/pkg/reproducible"
)

// tarSink writes entries into an uncompressed tar stream, the way dir.LayerFromDir walks a
// directory tree and builds tar headers from os.Lstat results — adapted here to build one header
// per incoming file record instead of walking a tree, since the caller (the packer) already knows
// the full set of records up front.
//
// Hardlinked source files are not deduplicated into tar.TypeLink entries; every record is written
// as a standalone regular file. Packed conda-style environments are not expected to contain
// intra-environment hardlinks of managed files, so this is a known simplification rather than an
// oversight.
type tarSink struct {
	w       *tar.Writer
	closer  io.Closer
	arcroot string
	clamp   time.Time
}

func newTarSink(w io.Writer, arcroot string) *tarSink {
	return &tarSink{w: tar.NewWriter(w), arcroot: arcroot, clamp: reproducible.Now()}
}

func (s *tarSink) Add(sourcePath, archiveTarget string) error {
	info, err := os.Lstat(sourcePath)
	if err != nil {
		return err
	}

	var linkname string
	if info.Mode()&os.ModeSymlink != 0 {
		linkname, err = os.Readlink(sourcePath)
		if err != nil {
			return err
		}
	}

	header, err := tar.FileInfoHeader(info, linkname)
	if err != nil {
		return err
	}
	header.Name = path.Join(s.arcroot, archiveTarget)
	clampHeaderTimes(header, s.clamp)

	if err := s.w.WriteHeader(header); err != nil {
		return err
	}
	if header.Typeflag != tar.TypeReg {
		return nil
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(s.w, f)
	return err
}

func (s *tarSink) AddBytes(sourcePath string, data []byte, archiveTarget string) error {
	mode := int64(0o644)
	if sourcePath != "" {
		info, err := os.Lstat(sourcePath)
		if err != nil {
			return err
		}
		mode = int64(info.Mode().Perm())
	}

	header := &tar.Header{
		Name:     path.Join(s.arcroot, archiveTarget),
		Typeflag: tar.TypeReg,
		Mode:     mode,
		Size:     int64(len(data)),
	}
	clampHeaderTimes(header, s.clamp)

	if err := s.w.WriteHeader(header); err != nil {
		return err
	}
	_, err := io.Copy(s.w, bytes.NewReader(data))
	return err
}

func (s *tarSink) Close(manifest []ManifestRow) error {
	if err := s.AddBytes("", renderManifest(manifest), path.Join(binDirName, ManifestName)); err != nil {
		return err
	}
	if err := s.w.Close(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func clampHeaderTimes(header *tar.Header, clamp time.Time) {
	if header.ModTime.After(clamp) {
		header.ModTime = clamp
	}
	if header.AccessTime.After(clamp) {
		header.AccessTime = clamp
	}
	if header.ChangeTime.After(clamp) {
		header.ChangeTime = clamp
	}
}
