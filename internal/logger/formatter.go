package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// FixedFormatWriter rewrites zerolog JSON lines into aligned columns for
// people tailing the log file:
//
//	2026-10-17 06:00:00.000 [INF] [zabbix         ] zabbix_sender output output="sent: 12; skipped: 0; total: 12"
//	2026-10-17 06:00:02.500 [DBG] [zabbix         ] Ignoring packet next_update=2.5
type FixedFormatWriter struct {
	w io.Writer
}

// NewFixedFormatWriter wraps w.
func NewFixedFormatWriter(w io.Writer) *FixedFormatWriter {
	return &FixedFormatWriter{w: w}
}

var levelTags = map[string]string{
	"trace": "TRC",
	"debug": "DBG",
	"info":  "INF",
	"warn":  "WRN",
	"error": "ERR",
	"fatal": "FTL",
	"panic": "PNC",
}

const (
	componentWidth = 15
	timestampWidth = len("2006-01-02 15:04:05.000")
)

func (f *FixedFormatWriter) Write(p []byte) (int, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(p, &fields); err != nil {
		return f.w.Write(p)
	}

	ts := formatTimestamp(takeString(fields, "time"))
	lvl, ok := levelTags[takeString(fields, "level")]
	if !ok {
		lvl = "???"
	}
	comp := takeString(fields, "component")
	if len(comp) > componentWidth {
		comp = comp[:componentWidth]
	}
	message := takeString(fields, "message")
	delete(fields, "caller")

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%-*s] %s", ts, lvl, componentWidth, comp, message)
	if extra := formatExtra(fields); extra != "" {
		b.WriteByte(' ')
		b.WriteString(extra)
	}
	b.WriteByte('\n')

	_, err := io.WriteString(f.w, b.String())
	// zerolog treats a short count as a failed write.
	return len(p), err
}

// takeString removes key from fields and returns its value as text.
func takeString(fields map[string]interface{}, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	delete(fields, key)
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// formatTimestamp turns an RFC3339 timestamp into "2006-01-02 15:04:05.000",
// dropping the zone and normalising the fraction to milliseconds.
func formatTimestamp(ts string) string {
	if len(ts) < 19 {
		return fmt.Sprintf("%-*s", timestampWidth, ts)
	}

	result := strings.Replace(ts, "T", " ", 1)
	if idx := strings.IndexAny(result[11:], "Z+-"); idx >= 0 {
		result = result[:11+idx]
	}

	dot := strings.LastIndex(result, ".")
	switch {
	case dot == -1:
		result += ".000"
	case len(result)-dot-1 > 3:
		result = result[:dot+4]
	default:
		result += strings.Repeat("0", 3-(len(result)-dot-1))
	}

	if len(result) > timestampWidth {
		result = result[:timestampWidth]
	}
	return fmt.Sprintf("%-*s", timestampWidth, result)
}

// formatExtra renders the remaining fields as sorted key=value pairs.
func formatExtra(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		s := fmt.Sprintf("%v", fields[k])
		if strings.ContainsAny(s, " \t\n\"") {
			parts = append(parts, fmt.Sprintf("%s=%q", k, s))
		} else {
			parts = append(parts, k+"="+s)
		}
	}
	return strings.Join(parts, " ")
}
