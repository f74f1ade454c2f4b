package diag

import (
	"fmt"
	"strings"
)

// Severity orders diagnostics. Only SevError stops a capture by default; a
// value replaced by a placeholder is reported as SevWarning.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{
	SevInfo:    "info",
	SevWarning: "warning",
	SevError:   "error",
}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("severity(%d)", uint8(s))
}

// ParseSeverity accepts the names String returns, in any case.
func ParseSeverity(name string) (Severity, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q (expected info|warning|error)", name)
}

// Worst returns the highest severity in items and false when items is empty.
func Worst(items []Diagnostic) (Severity, bool) {
	if len(items) == 0 {
		return 0, false
	}
	worst := SevInfo
	for _, d := range items {
		worst = max(worst, d.Severity)
	}
	return worst, true
}
