// analyzer_patterns.go: extension risk tables, pattern categories, and
// severity multipliers for the Analyzer (C5), compiled once at package
// init for determinism.
//
// Grounded directly on myapp/file_monitor/ai_analyzer/simple_analyzer.py's
// module-level constants: MALWARE_EXTENSIONS, EXECUTABLE_EXTENSIONS,
// SCRIPT_EXTENSIONS, SEVERITY_MULTIPLIERS, and the seven regex categories.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import "regexp"

var malwareExtensions = map[string]bool{
	".locked": true, ".encrypted": true, ".crypt": true, ".wncry": true,
	".cerber": true, ".zepto": true, ".locky": true, ".cryptolocker": true,
}

var executableExtensions = map[string]bool{
	".exe": true, ".dll": true, ".sys": true, ".bat": true, ".cmd": true,
	".ps1": true, ".vbs": true, ".jar": true, ".msi": true, ".scr": true,
	".com": true, ".pif": true,
}

var scriptExtensions = map[string]bool{
	".py": true, ".sh": true, ".php": true, ".pl": true, ".asp": true,
	".jsp": true, ".rb": true, ".js": true, ".htaccess": true,
}

var mediaExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
}

// severityMultipliers mirrors simple_analyzer.py's SEVERITY_MULTIPLIERS
// exactly: command_injection and malware_indicators are the most severe
// categories, file_operations the least.
var severityMultipliers = map[string]float64{
	"command_injection":    3.0,
	"malware_indicators":   3.0,
	"code_obfuscation":     2.5,
	"hardcoded_credentials": 2.0,
	"unsafe_network":       1.5,
	"crypto_concerns":      1.2,
	"file_operations":      0.8,
}

// categoryDescription gives the human-readable label used in Finding and
// its recommendation.
var categoryDescription = map[string]string{
	"command_injection":    "possible command injection pattern",
	"hardcoded_credentials": "possible hardcoded credential",
	"unsafe_network":       "unsafe network operation",
	"file_operations":      "potentially destructive file operation",
	"crypto_concerns":      "cryptographic or ransomware-adjacent operation",
	"malware_indicators":   "malware indicator string",
	"code_obfuscation":     "obfuscated or encoded payload",
}

var categoryRecommendation = map[string]string{
	"command_injection":    "Audit this file for shell command construction from untrusted input.",
	"hardcoded_credentials": "Remove hardcoded credentials and rotate any exposed secrets.",
	"unsafe_network":       "Verify outbound network calls are intentional and to trusted hosts.",
	"file_operations":      "Confirm destructive file operations are scoped and intentional.",
	"crypto_concerns":      "Investigate use of encryption APIs for ransomware-like behavior.",
	"malware_indicators":   "Treat this file as potentially malicious pending manual review.",
	"code_obfuscation":     "Deobfuscate and review the payload before trusting this file.",
}

// patternCategories holds the compiled regexes per category, in the same
// seven-category order as the original Python analyzer.
var patternCategories = map[string][]*regexp.Regexp{
	"command_injection": compileAll(
		`(?i)\bos\.system\s*\(`,
		`(?i)\bsubprocess\.(call|run|popen|check_output)\s*\(`,
		`(?i)\bexec\s*\(`,
		`(?i)\beval\s*\(`,
		`;\s*rm\s+-rf\s+`,
		`\|\s*sh\b`,
		`` + "`" + `.*` + "`",
	),
	"hardcoded_credentials": compileAll(
		`(?i)(password|passwd|pwd)\s*[:=]\s*["'][^"']{3,}["']`,
		`(?i)(api[_-]?key|secret[_-]?key|access[_-]?token)\s*[:=]\s*["'][^"']{6,}["']`,
		`(?i)aws_(access|secret)_key`,
		`-----BEGIN (RSA |EC )?PRIVATE KEY-----`,
	),
	"unsafe_network": compileAll(
		`(?i)\bsocket\.(connect|bind)\s*\(`,
		`(?i)\burllib\.(request\.)?urlopen\s*\(`,
		`(?i)\brequests\.(get|post)\s*\(\s*["']https?://`,
		`(?i)\bcurl\s+-[a-zA-Z]*\s*https?://`,
		`(?i)reverse\s*shell`,
	),
	"file_operations": compileAll(
		`(?i)\bshutil\.rmtree\s*\(`,
		`(?i)\bos\.remove\s*\(`,
		`(?i)\bos\.unlink\s*\(`,
		`(?i)format\s+c:`,
		`(?i)del\s+/[sf]\s+/[qf]`,
	),
	"crypto_concerns": compileAll(
		`(?i)\bfrom\s+cryptography\b`,
		`(?i)\bAES\.(new|encrypt)\s*\(`,
		`(?i)\bfernet\b`,
		`(?i)encrypt.{0,20}(all|every|each)\s+file`,
	),
	"malware_indicators": compileAll(
		`(?i)your\s+files\s+have\s+been\s+encrypted`,
		`(?i)bitcoin\s+wallet`,
		`(?i)pay\s+the\s+ransom`,
		`(?i)keylogger`,
		`(?i)c2[_-]?server`,
		`(?i)botnet`,
	),
	"code_obfuscation": compileAll(
		`(?i)\bbase64\.(b64decode|decode)\s*\(`,
		`(?i)\bexec\s*\(\s*compile\s*\(`,
		`chr\(\d+\)\s*\+\s*chr\(\d+\)`,
		`(?i)\bmarshal\.loads\s*\(`,
	),
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// extensionMimeTypes is a small, deliberately non-exhaustive MIME table;
// anything missing falls back to the text/binary content heuristic.
var extensionMimeTypes = map[string]string{
	".txt": "text/plain", ".json": "application/json", ".xml": "application/xml",
	".html": "text/html", ".css": "text/css", ".js": "application/javascript",
	".py": "text/x-python", ".go": "text/x-go", ".sh": "application/x-sh",
	".pdf": "application/pdf", ".exe": "application/x-msdownload",
	".dll": "application/x-msdownload", ".zip": "application/zip",
	".jpg": "image/jpeg", ".jpeg": "image/jpeg", ".png": "image/png",
	".mp4": "video/mp4", ".mov": "video/quicktime",
}
