package canonical

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cuemby/ovconverge/pkg/types"
)

// Absent is the canonical form shared by null, "", [], {} and false
const Absent = "\x00absent"

// IsAbsent reports whether v belongs to the absent set:
// null, empty string, empty sequence, empty record or false.
func IsAbsent(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	}
	if rec, ok := types.AsRecord(v); ok {
		return len(rec) == 0
	}
	if l, ok := types.AsList(v); ok {
		return len(l) == 0
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		// typed nil containers
		return true
	}
	return false
}

// Scalar converts a scalar to its comparable string form. Integer-valued
// floats lose their fraction and numeric strings collapse onto the number
// they spell, so "10", 10 and 10.0 all canonicalise to "10".
func Scalar(v interface{}) string {
	if IsAbsent(v) {
		return Absent
	}
	switch t := v.(type) {
	case bool:
		return "true"
	case string:
		if f, ok := parseNumber(t); ok {
			return formatFloat(f)
		}
		return t
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case int:
		return strconv.FormatInt(int64(t), 10)
	case int8:
		return strconv.FormatInt(int64(t), 10)
	case int16:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint8:
		return strconv.FormatUint(uint64(t), 10)
	case uint16:
		return strconv.FormatUint(uint64(t), 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case json.Number:
		if f, ok := parseNumber(t.String()); ok {
			return formatFloat(f)
		}
		return t.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// String is a canonical stringification of any value, used to order
// sequence elements before positional comparison. Values the comparator
// considers equal produce the same string: scalars go through Scalar,
// absent-valued keys are dropped and nested sequences are sorted.
func String(v interface{}) string {
	var sb strings.Builder
	write(&sb, v)
	return sb.String()
}

func write(sb *strings.Builder, v interface{}) {
	if rec, ok := types.AsRecord(v); ok {
		var fields []string
		for _, k := range types.Keys(rec) {
			if IsAbsent(rec[k]) {
				continue
			}
			fields = append(fields, strconv.Quote(k)+":"+String(rec[k]))
		}
		if len(fields) == 0 {
			sb.WriteString(strconv.Quote(Absent))
			return
		}
		sb.WriteString("{" + strings.Join(fields, ",") + "}")
		return
	}
	if l, ok := types.AsList(v); ok && len(l) > 0 {
		parts := make([]string, len(l))
		for i, e := range l {
			parts[i] = String(e)
		}
		sort.Strings(parts)
		sb.WriteString("[" + strings.Join(parts, ",") + "]")
		return
	}
	sb.WriteString(strconv.Quote(Scalar(v)))
}

func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e18 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
