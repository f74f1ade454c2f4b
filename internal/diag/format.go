package diag

import (
	"fmt"
	"sort"
	"strings"

	"capsule/internal/source"
)

// FormatShort renders diagnostics one per line, sorted by position:
// "<severity> <ID> <path>:<line>:<col> <message>".
func FormatShort(items []Diagnostic, fs *source.FileSet) string {
	if len(items) == 0 {
		return ""
	}
	type row struct {
		pos  source.Position
		text string
	}
	rows := make([]row, 0, len(items))
	for _, d := range items {
		var pos source.Position
		if fs != nil && fs.Get(d.Primary.File) != nil {
			pos = fs.Position(d.Primary)
		}
		msg := strings.ReplaceAll(d.Message, "\n", " ")
		loc := "-"
		if pos.Path != "" {
			loc = pos.String()
		}
		rows = append(rows, row{pos: pos, text: fmt.Sprintf("%s %s %s %s", d.Severity.String(), d.Code.ID(), loc, msg)})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].pos.Path != rows[j].pos.Path {
			return rows[i].pos.Path < rows[j].pos.Path
		}
		return rows[i].pos.Line < rows[j].pos.Line
	})
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.text
	}
	return strings.Join(out, "\n")
}
