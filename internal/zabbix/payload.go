package zabbix

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/HoracioDos/weewx-zabbix/internal/engine"
)

// FormatLine renders one zabbix_sender input line: "<host> <prefix><key> <value>\n".
func FormatLine(host, prefix, key string, value interface{}) string {
	return host + " " + prefix + key + " " + FormatValue(value) + "\n"
}

// FormatPayload renders every field of pkt, in packet order.
func FormatPayload(host, prefix string, pkt *engine.Packet) string {
	var b strings.Builder
	for _, f := range pkt.Fields() {
		b.WriteString(FormatLine(host, prefix, f.Name, f.Value))
	}
	return b.String()
}

// FormatValue renders a packet value the way weewx itself prints it, so
// items keep receiving the same text they always have: missing readings are
// "None" and booleans are "True"/"False".
func FormatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// collapseWhitespace joins the words of s with single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
