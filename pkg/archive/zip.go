// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/datawire/envpack/pkg/reproducible"
)

// zipSink writes entries into a zip archive, encoding UNIX permission bits into each entry's
// external attributes field the way Python's zipfile and Go's own archive/zip examples do
// (mode<<16 in the high bytes, a DOS attribute byte in the low byte; see zipattr.go).
type zipSink struct {
	w           *zip.Writer
	arcroot     string
	zipSymlinks bool
	clamp       time.Time
}

func newZipSink(w io.Writer, arcroot string, zipSymlinks bool) *zipSink {
	return &zipSink{w: zip.NewWriter(w), arcroot: arcroot, zipSymlinks: zipSymlinks, clamp: reproducible.Now()}
}

func (s *zipSink) Add(sourcePath, archiveTarget string) error {
	info, err := os.Lstat(sourcePath)
	if err != nil {
		return err
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		if s.zipSymlinks {
			target, err := os.Readlink(sourcePath)
			if err != nil {
				return err
			}
			mode := (info.Mode() &^ fs.ModeType) | fs.ModeSymlink
			return s.writeEntry(archiveTarget, []byte(target), mode, false)
		}
		// Dereference: store the bytes and mode of whatever the symlink points at.
		resolved, err := os.Stat(sourcePath)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(sourcePath)
		if err != nil {
			return err
		}
		return s.writeEntry(archiveTarget, data, resolved.Mode(), false)
	case info.IsDir():
		return s.writeEntry(archiveTarget, nil, info.Mode(), true)
	default:
		data, err := os.ReadFile(sourcePath)
		if err != nil {
			return err
		}
		return s.writeEntry(archiveTarget, data, info.Mode(), false)
	}
}

func (s *zipSink) AddBytes(sourcePath string, data []byte, archiveTarget string) error {
	mode := fs.FileMode(0o644)
	if sourcePath != "" {
		if info, err := os.Lstat(sourcePath); err == nil {
			mode = info.Mode()
		}
	}
	return s.writeEntry(archiveTarget, data, mode, false)
}

func (s *zipSink) writeEntry(archiveTarget string, data []byte, mode fs.FileMode, isDir bool) error {
	name := path.Join(s.arcroot, archiveTarget)
	if isDir {
		name += "/"
	}

	header := &zip.FileHeader{
		Name:     name,
		Modified: s.clamp,
	}
	if !isDir && mode&fs.ModeSymlink == 0 {
		header.Method = zip.Deflate
	}
	header.ExternalAttrs = externalAttributesFor(mode)

	w, err := s.w.CreateHeader(header)
	if err != nil {
		return err
	}
	if isDir {
		return nil
	}
	_, err = w.Write(data)
	return err
}

func (s *zipSink) Close(manifest []ManifestRow) error {
	if err := s.AddBytes("", renderManifest(manifest), path.Join(binDirName, ManifestName)); err != nil {
		return err
	}
	return s.w.Close()
}
