// hashing.go: content hashing for the Dispatcher's change filter (I3) and
// the Analyzer's integrity hash.
//
// Grounded on myapp/file_monitor/file_monitor.py's _get_file_hash: whole
// file for small files, head+tail sampling for large ones, to keep the
// change-detection pass cheap on multi-gigabyte trees.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"io"
	"os"

	errors "github.com/agilira/go-errors"
)

const (
	fastHashFullThreshold = 2 * 1024 * 1024 // 2 MiB
	fastHashSampleSize    = 1 * 1024 * 1024 // 1 MiB head + tail
)

// fastContentHash computes a cheap, non-cryptographic hash used purely to
// decide whether a file's content actually changed (I3), never persisted
// as the authoritative AnalysisRow hash.
func fastContentHash(path string, size int64) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, ErrCodePathUnavailable, "opening file for hashing").WithContext("path", path)
	}
	defer f.Close()

	h := fnv.New64a()

	if size <= fastHashFullThreshold {
		if _, err := io.Copy(h, f); err != nil {
			return 0, errors.Wrap(err, ErrCodePathUnavailable, "reading file for hashing").WithContext("path", path)
		}
		return h.Sum64(), nil
	}

	head := make([]byte, fastHashSampleSize)
	if _, err := io.ReadFull(f, head); err != nil && err != io.ErrUnexpectedEOF {
		return 0, errors.Wrap(err, ErrCodePathUnavailable, "reading head sample").WithContext("path", path)
	}
	h.Write(head)

	if _, err := f.Seek(size-fastHashSampleSize, io.SeekStart); err != nil {
		return 0, errors.Wrap(err, ErrCodePathUnavailable, "seeking to tail sample").WithContext("path", path)
	}
	tail := make([]byte, fastHashSampleSize)
	if _, err := io.ReadFull(f, tail); err != nil && err != io.ErrUnexpectedEOF {
		return 0, errors.Wrap(err, ErrCodePathUnavailable, "reading tail sample").WithContext("path", path)
	}
	h.Write(tail)

	return h.Sum64(), nil
}

// sha256Hex computes the full-file SHA-256 used as AnalysisRow.FileHash —
// always a whole-file cryptographic hash, independent of fastContentHash's
// sampling shortcut.
func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
