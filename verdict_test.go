// verdict_test.go
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import "testing"

func TestRiskLevelForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0, RiskSafe}, {9, RiskSafe}, {9.9, RiskSafe}, {10, RiskModerate}, {24, RiskModerate},
		{25, RiskSuspicious}, {49, RiskSuspicious}, {49.5, RiskSuspicious}, {50, RiskDangerous}, {100, RiskDangerous},
	}
	for _, tt := range tests {
		if got := riskLevelForScore(tt.score); got != tt.want {
			t.Errorf("riskLevelForScore(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestSeverityForMultiplier(t *testing.T) {
	if severityForMultiplier(3.0) != SeverityHigh {
		t.Error("3.0 should map to high severity")
	}
	if severityForMultiplier(1.5) != SeverityMedium {
		t.Error("1.5 should map to medium severity")
	}
	if severityForMultiplier(0.8) != SeverityLow {
		t.Error("0.8 should map to low severity")
	}
}

func TestSortFindingsBySeverityDesc(t *testing.T) {
	findings := []Finding{
		{Category: "a", Severity: SeverityLow},
		{Category: "b", Severity: SeverityHigh},
		{Category: "c", Severity: SeverityMedium},
	}
	sorted := sortFindingsBySeverityDesc(findings)
	if sorted[0].Severity != SeverityHigh || sorted[1].Severity != SeverityMedium || sorted[2].Severity != SeverityLow {
		t.Errorf("expected high, medium, low order, got %+v", sorted)
	}
}

func TestMarshalDeterministicJSONIsStable(t *testing.T) {
	v := Verdict{
		FileInfo:  FileInfo{Path: "/a", SizeBytes: 10},
		RiskLevel: RiskSafe,
		Metadata:  map[string]interface{}{"b": 1, "a": 2},
	}

	out1, err := v.MarshalDeterministicJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out2, err := v.MarshalDeterministicJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out1) != string(out2) {
		t.Error("expected identical verdicts to marshal to identical JSON")
	}
}
