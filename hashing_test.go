// hashing_test.go
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFastContentHashSmallFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.txt")
	content := []byte("hello vigil")
	if err := os.WriteFile(path, content, 0640); err != nil {
		t.Fatalf("setup: %v", err)
	}

	h1, err := fastContentHash(path, int64(len(content)))
	if err != nil {
		t.Fatalf("fastContentHash failed: %v", err)
	}
	h2, err := fastContentHash(path, int64(len(content)))
	if err != nil {
		t.Fatalf("fastContentHash failed: %v", err)
	}
	if h1 != h2 {
		t.Error("hashing the same unchanged file twice should be stable")
	}
}

func TestFastContentHashDetectsChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(path, []byte("version one"), 0640); err != nil {
		t.Fatalf("setup: %v", err)
	}
	h1, err := fastContentHash(path, 11)
	if err != nil {
		t.Fatalf("fastContentHash failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("version two, different content"), 0640); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	fi, _ := os.Stat(path)
	h2, err := fastContentHash(path, fi.Size())
	if err != nil {
		t.Fatalf("fastContentHash failed: %v", err)
	}

	if h1 == h2 {
		t.Error("expected different hashes for different content")
	}
}

func TestFastContentHashLargeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "large.bin")
	size := fastHashFullThreshold + 2*fastHashSampleSize
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		t.Fatalf("setup: %v", err)
	}

	h, err := fastContentHash(path, int64(size))
	if err != nil {
		t.Fatalf("fastContentHash failed on large file: %v", err)
	}
	if h == 0 {
		t.Error("expected a non-zero hash for large file sampling")
	}
}

func TestSha256Hex(t *testing.T) {
	got := sha256Hex([]byte("hello"))
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("sha256Hex(\"hello\") = %s, want %s", got, want)
	}
}
