package trace

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

type Format uint8

const (
	FormatAuto   Format = iota // picked from the output path
	FormatText                 // one line per event
	FormatNDJSON               // one JSON object per line
	FormatChrome               // chrome://tracing event array
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson":
		return FormatNDJSON, nil
	case "chrome":
		return FormatChrome, nil
	default:
		return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson|chrome)", s)
	}
}

// formatFor resolves FormatAuto from the output path extension.
func formatFor(f Format, path string) Format {
	if f != FormatAuto {
		return f
	}
	switch {
	case strings.HasSuffix(path, ".ndjson"):
		return FormatNDJSON
	case strings.HasSuffix(path, ".json"):
		return FormatChrome
	default:
		return FormatText
	}
}

// FormatEvent renders ev. NDJSON and text end with a newline; Chrome
// entries are bare objects joined by the stream tracer.
func FormatEvent(ev *Event, format Format) []byte {
	switch format {
	case FormatNDJSON:
		return formatNDJSON(ev)
	case FormatChrome:
		return formatChrome(ev)
	default:
		return formatText(ev)
	}
}

func sortedExtra(extra map[string]string) []string {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func extraDict(extra map[string]string, detail string) *zerolog.Event {
	d := zerolog.Dict()
	for _, k := range sortedExtra(extra) {
		d = d.Str(k, extra[k])
	}
	if detail != "" {
		d = d.Str("detail", detail)
	}
	return d
}

func formatNDJSON(ev *Event) []byte {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	e := zl.Log().
		Str("time", ev.Time.Format("2006-01-02T15:04:05.000000Z07:00")).
		Uint64("seq", ev.Seq).
		Str("kind", ev.Kind.String()).
		Str("scope", ev.Scope.String()).
		Uint64("span_id", ev.SpanID)
	if ev.ParentID != 0 {
		e = e.Uint64("parent_id", ev.ParentID)
	}
	if ev.Lane != "" {
		e = e.Str("lane", ev.Lane)
	}
	e = e.Str("name", ev.Name)
	if ev.Detail != "" {
		e = e.Str("detail", ev.Detail)
	}
	if len(ev.Extra) > 0 {
		e = e.Dict("extra", extraDict(ev.Extra, ""))
	}
	e.Send()
	return buf.Bytes()
}

// laneID maps a lane to a stable chrome thread id; the main lane is 0.
func laneID(lane string) uint32 {
	if lane == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(lane))
	return h.Sum32()
}

func formatChrome(ev *Event) []byte {
	ph := "i"
	switch ev.Kind {
	case KindSpanBegin:
		ph = "B"
	case KindSpanEnd:
		ph = "E"
	}
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	e := zl.Log().
		Str("name", ev.Name).
		Str("cat", ev.Scope.String()).
		Str("ph", ph).
		Int64("ts", ev.Time.UnixMicro()).
		Int("pid", 1).
		Uint32("tid", laneID(ev.Lane))
	if len(ev.Extra) > 0 || ev.Detail != "" {
		e = e.Dict("args", extraDict(ev.Extra, ev.Detail))
	}
	e.Send()
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// formatText renders "[seq] lane > name (detail) {k=v}", indenting child
// spans.
func formatText(ev *Event) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%6d] ", ev.Seq)
	if ev.Lane != "" {
		lane := ev.Lane
		if len(lane) > 8 {
			lane = lane[len(lane)-8:]
		}
		sb.WriteString(lane + " ")
	}
	if ev.ParentID > 0 {
		sb.WriteString("  ")
	}
	switch ev.Kind {
	case KindSpanBegin:
		sb.WriteString("> ")
	case KindSpanEnd:
		sb.WriteString("< ")
	case KindPoint:
		sb.WriteString(". ")
	case KindHeartbeat:
		sb.WriteString("~ ")
	}
	sb.WriteString(ev.Name)
	if ev.Detail != "" {
		fmt.Fprintf(&sb, " (%s)", ev.Detail)
	}
	if len(ev.Extra) > 0 {
		keys := sortedExtra(ev.Extra)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = k + "=" + ev.Extra[k]
		}
		fmt.Fprintf(&sb, " {%s}", strings.Join(pairs, ", "))
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}
