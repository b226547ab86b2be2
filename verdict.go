// verdict.go: Verdict (C5 output) and its supporting types, with a
// deterministic fixed-key-order JSON encoding per SPEC_FULL.md §4.5.4.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RiskLevel is the Analyzer's coarse risk classification.
type RiskLevel string

const (
	RiskSafe       RiskLevel = "safe"
	RiskModerate   RiskLevel = "moderate"
	RiskSuspicious RiskLevel = "suspicious"
	RiskDangerous  RiskLevel = "dangerous"
)

// Severity is a finding's individual severity, independent of the
// aggregate RiskLevel.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Finding is one contributor to a Verdict's score: either an extension
// rule, a pattern-category match, or a binary-format check.
type Finding struct {
	Category       string   `json:"category"`
	Severity       Severity `json:"severity"`
	Score          float64  `json:"score"`
	MatchCount     int      `json:"match_count,omitempty"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
	Contexts       []string `json:"contexts,omitempty"`
}

// FileInfo is the metadata half of a Verdict: facts about the file
// independent of any risk judgement.
type FileInfo struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	SHA256    string `json:"sha256"`
	Extension string `json:"extension"`
	MimeType  string `json:"mime_type"`
	IsBinary  bool   `json:"is_binary"`
}

// Verdict is the Analyzer's complete, deterministic output for one file.
type Verdict struct {
	FileInfo            FileInfo               `json:"file_info"`
	RiskLevel           RiskLevel              `json:"risk_level"`
	Score               float64                `json:"score"`
	Findings            []Finding              `json:"findings"`
	RecommendationText  string                 `json:"recommendation_text"`
	AnalysisSkipped     string                 `json:"analysis_skipped,omitempty"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
}

// MarshalDeterministicJSON renders v with map-like fields (Metadata) in
// sorted key order so identical inputs always produce byte-identical
// output, per SPEC_FULL.md §4.5.4. It relies on encoding/json sorting map
// keys at every nesting level, including maps nested in Metadata's values;
// the result is then re-indented with an empty indent and its newlines
// removed.
func (v Verdict) MarshalDeterministicJSON() ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", ""); err != nil {
		return raw, nil
	}
	return bytes.ReplaceAll(buf.Bytes(), []byte("\n"), []byte("")), nil
}

func riskLevelForScore(score float64) RiskLevel {
	switch {
	case score >= 50:
		return RiskDangerous
	case score >= 25:
		return RiskSuspicious
	case score >= 10:
		return RiskModerate
	default:
		return RiskSafe
	}
}

func severityForMultiplier(m float64) Severity {
	switch {
	case m >= 2.5:
		return SeverityHigh
	case m >= 1.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func recommendationBlock(level RiskLevel) string {
	switch level {
	case RiskDangerous:
		return "Quarantine this file immediately and investigate the source of the change."
	case RiskSuspicious:
		return "Review this file manually before allowing further access."
	case RiskModerate:
		return "Monitor this file; no immediate action required."
	default:
		return "No action required."
	}
}

func buildRecommendationText(findings []Finding, level RiskLevel) string {
	var buf bytes.Buffer
	ordered := sortFindingsBySeverityDesc(findings)
	for _, f := range ordered {
		if f.Recommendation == "" {
			continue
		}
		fmt.Fprintf(&buf, "%s ", f.Recommendation)
	}
	buf.WriteString(recommendationBlock(level))
	return buf.String()
}

func sortFindingsBySeverityDesc(findings []Finding) []Finding {
	rank := map[Severity]int{SeverityHigh: 2, SeverityMedium: 1, SeverityLow: 0}
	out := make([]Finding, len(findings))
	copy(out, findings)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && rank[out[j].Severity] > rank[out[j-1].Severity]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
