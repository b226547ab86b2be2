// analyzer_test.go
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

func analyzeFile(t *testing.T, dir, name string, content []byte) Verdict {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0640); err != nil {
		t.Fatalf("setup: %v", err)
	}
	v, err := Analyze(path, AnalyzeOptions{MaxFileSizeBytes: 10 * 1024 * 1024})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	return v
}

func TestAnalyzeSafeTextFile(t *testing.T) {
	dir := t.TempDir()
	v := analyzeFile(t, dir, "notes.txt", []byte("just some ordinary notes about the weekend"))

	if v.RiskLevel != RiskSafe {
		t.Errorf("expected safe risk level, got %s (score %v, findings %+v)", v.RiskLevel, v.Score, v.Findings)
	}
}

func TestAnalyzeCommandInjectionPattern(t *testing.T) {
	dir := t.TempDir()
	v := analyzeFile(t, dir, "script.py", []byte("import os\nos.system('rm -rf /tmp/x')\n"))

	if v.Score == 0 {
		t.Fatal("expected a non-zero score for a command-injection pattern")
	}
	found := false
	for _, f := range v.Findings {
		if f.Category == "command_injection" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a command_injection finding, got %+v", v.Findings)
	}
}

func TestAnalyzeRansomwareExtension(t *testing.T) {
	dir := t.TempDir()
	v := analyzeFile(t, dir, "document.docx.locked", []byte("encrypted payload"))

	found := false
	for _, f := range v.Findings {
		if f.Category == "malware_extension" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a malware_extension finding for .locked, got %+v", v.Findings)
	}
}

func TestAnalyzePEHeader(t *testing.T) {
	dir := t.TempDir()
	data := append([]byte{'M', 'Z'}, make([]byte, 100)...)
	v := analyzeFile(t, dir, "payload.bin", data)

	if !v.FileInfo.IsBinary {
		t.Error("expected MZ-prefixed content to be classified as binary")
	}
	found := false
	for _, f := range v.Findings {
		if f.Category == "pe_header" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a pe_header finding, got %+v", v.Findings)
	}
}

func TestAnalyzeTooLargeForAnalysis(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "huge.bin")
	if err := os.WriteFile(path, make([]byte, 2048), 0640); err != nil {
		t.Fatalf("setup: %v", err)
	}

	v, err := Analyze(path, AnalyzeOptions{MaxFileSizeBytes: 1024})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if v.AnalysisSkipped != "too_large_for_analysis" {
		t.Errorf("expected too_large_for_analysis, got %q", v.AnalysisSkipped)
	}
	if v.FileInfo.SHA256 != "" {
		t.Error("an oversized file should never be read, so SHA256 must stay empty")
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	_, err := Analyze(filepath.Join(t.TempDir(), "missing.txt"), AnalyzeOptions{})
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestIsBinaryContent(t *testing.T) {
	if isBinaryContent([]byte("plain ascii text")) {
		t.Error("plain ASCII should not be classified as binary")
	}
	if !isBinaryContent([]byte{0x00, 0x01, 0x02, 'a', 'b'}) {
		t.Error("content containing a null byte should be classified as binary")
	}
}

func TestMimeTypeFor(t *testing.T) {
	if mimeTypeFor(".txt") != "text/plain" {
		t.Error("expected .txt to map to text/plain")
	}
	if mimeTypeFor(".unknown-ext") != "application/octet-stream" {
		t.Error("expected unknown extension to fall back to application/octet-stream")
	}
}
