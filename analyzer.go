// analyzer.go: Analyzer (C5) — a pure function from (path, bytes,
// metadata) to a Verdict. No network access, no execution.
//
// Grounded on myapp/file_monitor/ai_analyzer/simple_analyzer.py's
// SimpleSecurityAnalyzer.analyze_file almost structurally: extension
// risk first, then a textual pattern scan or binary-format checks
// depending on content type, then risk-level thresholds and
// recommendation text.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	errors "github.com/agilira/go-errors"
)

const (
	analysisTimeout  = 2 * time.Second
	sniffSampleBytes = 4096
	maxMatchesPerCat = 10
	maxContextsPerCat = 3
	contextWindow    = 40
)

// AnalyzeOptions carries the caller-supplied metadata passthrough field
// supplemented from original_source's analyze_file(metadata=...) contract
// (change kind, observation time, correlation hints) — additive only,
// never consulted by the scoring logic itself.
type AnalyzeOptions struct {
	MaxFileSizeBytes int64
	Metadata         map[string]interface{}
}

// Analyze reads path and produces a Verdict. Oversized files are not read
// at all (§4.5.3): the verdict is {moderate, too_large_for_analysis}. A
// 2-second wall-clock budget bounds the pattern scan; on timeout the
// verdict becomes {moderate, analysis_timeout} rather than failing the
// job outright, per §7's error policy.
func Analyze(path string, opts AnalyzeOptions) (Verdict, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Verdict{}, errors.Wrap(err, ErrCodePathUnavailable, "stat before analysis").WithContext("path", path)
	}

	fi := FileInfo{
		Path:      path,
		SizeBytes: info.Size(),
		Extension: strings.ToLower(filepath.Ext(path)),
	}
	fi.MimeType = mimeTypeFor(fi.Extension)

	if opts.MaxFileSizeBytes > 0 && info.Size() > opts.MaxFileSizeBytes {
		return Verdict{
			FileInfo:        fi,
			RiskLevel:       RiskModerate,
			AnalysisSkipped: "too_large_for_analysis",
			Metadata:        opts.Metadata,
		}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Verdict{}, errors.Wrap(err, ErrCodePathUnavailable, "reading file for analysis").WithContext("path", path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	result := make(chan Verdict, 1)
	go func() {
		result <- analyzeBytes(fi, data, opts.Metadata)
	}()

	select {
	case v := <-result:
		return v, nil
	case <-ctx.Done():
		return Verdict{
			FileInfo:        fi,
			RiskLevel:       RiskModerate,
			AnalysisSkipped: "analysis_timeout",
			Metadata:        opts.Metadata,
		}, nil
	}
}

func analyzeBytes(fi FileInfo, data []byte, metadata map[string]interface{}) Verdict {
	fi.SHA256 = sha256Hex(data)
	fi.IsBinary = isBinaryContent(data)

	var findings []Finding
	score := 0.0

	extFinding, extScore := extensionRisk(fi.Extension)
	if extFinding != nil {
		findings = append(findings, *extFinding)
		score += extScore
	}

	if fi.IsBinary {
		bFindings, bScore := binaryChecks(fi, data)
		findings = append(findings, bFindings...)
		score += bScore
	} else {
		tFindings, tScore := textPatternScan(data)
		findings = append(findings, tFindings...)
		score += tScore
	}

	if mediaExtensions[fi.Extension] && fi.SizeBytes < 100*1024 {
		findings = append(findings, Finding{
			Category:       "anomalous_media_size",
			Severity:       SeverityMedium,
			Score:          15,
			Description:    "media file unexpectedly small for its declared type",
			Recommendation: "Confirm this media file was not truncated or swapped for a payload.",
		})
		score += 15
	}

	// Round once, after every category's fractional contribution has been
	// summed, so partial points from severityMultipliers never get lost
	// category-by-category before they can tip the risk_level threshold.
	score = math.Round(score*100) / 100
	level := riskLevelForScore(score)

	return Verdict{
		FileInfo:           fi,
		RiskLevel:          level,
		Score:              score,
		Findings:           findings,
		RecommendationText: buildRecommendationText(findings, level),
		Metadata:           metadata,
	}
}

func mimeTypeFor(ext string) string {
	if mt, ok := extensionMimeTypes[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}

// isBinaryContent implements §4.5.2: a null byte in the first 4096 bytes
// is decisive; otherwise more than 30% control characters (excluding
// tab/LF/CR) also counts as binary.
func isBinaryContent(data []byte) bool {
	sample := data
	if len(sample) > sniffSampleBytes {
		sample = sample[:sniffSampleBytes]
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}

	control := 0
	for _, b := range sample {
		if b < 32 && b != 9 && b != 10 && b != 13 {
			control++
		}
	}
	if len(sample) == 0 {
		return false
	}
	return float64(control)/float64(len(sample)) > 0.30
}

func extensionRisk(ext string) (*Finding, float64) {
	switch {
	case malwareExtensions[ext]:
		return &Finding{
			Category:       "malware_extension",
			Severity:       SeverityHigh,
			Score:          30,
			Description:    "extension associated with known ransomware families",
			Recommendation: "Isolate this file; the extension matches a known ransomware encryption marker.",
		}, 30
	case executableExtensions[ext]:
		return &Finding{
			Category:       "executable_extension",
			Severity:       SeverityHigh,
			Score:          20,
			Description:    "executable or script-host extension",
			Recommendation: "Verify this executable's origin before allowing it to run.",
		}, 20
	case scriptExtensions[ext]:
		return &Finding{
			Category:       "script_extension",
			Severity:       SeverityMedium,
			Score:          15,
			Description:    "interpreted script extension",
			Recommendation: "Review this script's contents before execution.",
		}, 15
	default:
		return nil, 0
	}
}

func textPatternScan(data []byte) ([]Finding, float64) {
	text := string(data)
	var findings []Finding
	total := 0.0

	for _, category := range orderedCategories {
		patterns := patternCategories[category]
		matchCount := 0
		var contexts []string

		for _, re := range patterns {
			locs := re.FindAllStringIndex(text, maxMatchesPerCat)
			for _, loc := range locs {
				matchCount++
				if len(contexts) < maxContextsPerCat {
					contexts = append(contexts, contextAround(text, loc[0], loc[1]))
				}
				if matchCount >= maxMatchesPerCat {
					break
				}
			}
			if matchCount >= maxMatchesPerCat {
				break
			}
		}

		if matchCount == 0 {
			continue
		}

		multiplier := severityMultipliers[category]
		contribution := float64(matchCount) * multiplier * 5
		total += contribution

		findings = append(findings, Finding{
			Category:       category,
			Severity:       severityForMultiplier(multiplier),
			Score:          contribution,
			MatchCount:     matchCount,
			Description:    categoryDescription[category],
			Recommendation: categoryRecommendation[category],
			Contexts:       contexts,
		})
	}

	return findings, total
}

// orderedCategories fixes iteration order over patternCategories so
// textPatternScan's output (and therefore score accumulation order) is
// deterministic regardless of Go's randomized map iteration.
var orderedCategories = []string{
	"command_injection", "malware_indicators", "code_obfuscation",
	"hardcoded_credentials", "unsafe_network", "crypto_concerns", "file_operations",
}

func contextAround(text string, start, end int) string {
	lo := start - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}

func binaryChecks(fi FileInfo, data []byte) ([]Finding, float64) {
	var findings []Finding
	total := 0.0

	if strings.HasPrefix(fi.MimeType, "application/x-msdownload") {
		findings = append(findings, Finding{
			Category: "executable_mime", Severity: SeverityHigh, Score: 25,
			Description: "executable MIME type", Recommendation: "Confirm this binary's provenance before execution.",
		})
		total += 25
	}

	if len(data) >= 2 && data[0] == 'M' && data[1] == 'Z' {
		findings = append(findings, Finding{
			Category: "pe_header", Severity: SeverityHigh, Score: 25,
			Description: "Windows PE (MZ) header detected", Recommendation: "Treat as a Windows executable; verify signature and origin.",
		})
		total += 25
	}

	if bytes.HasPrefix(data, []byte("%PDF")) {
		head := data
		if len(head) > 1024 {
			head = head[:1024]
		}
		if bytes.Contains(head, []byte("/JavaScript")) {
			findings = append(findings, Finding{
				Category: "pdf_javascript", Severity: SeverityMedium, Score: 20,
				Description: "PDF embeds JavaScript", Recommendation: "Inspect embedded JavaScript before opening this PDF.",
			})
			total += 20
		}
	}

	if bytes.Contains(data, []byte("vbaProject.bin")) {
		findings = append(findings, Finding{
			Category: "vba_macro", Severity: SeverityHigh, Score: 22,
			Description: "embedded VBA macro project", Recommendation: "Review macro contents; Office macros are a common malware vector.",
		})
		total += 22
	}

	return findings, total
}
