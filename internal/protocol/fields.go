package protocol

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// fields is a JSON object read one member at a time. Accessors never fail:
// a missing or unusable member reads as the zero value.
type fields map[string]json.RawMessage

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// str reads a string. Numbers and booleans are taken verbatim.
func (f fields) str(key string) string {
	return rawString(f[key])
}

func rawString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return ""
	}
	return text
}

// number reads a float from a JSON number or a numeric string.
func (f fields) number(key string) float64 {
	raw := f[key]
	if isNull(raw) {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return n
		}
	}
	return 0
}

// integer reads a number and rounds it, so 4.0 and "87" are accepted.
func (f fields) integer(key string) int {
	n := f.number(key)
	if math.IsNaN(n) || math.IsInf(n, 0) || n > math.MaxInt32 || n < math.MinInt32 {
		return 0
	}
	return int(math.Round(n))
}

// boolean reads true, "true" or a non-zero number.
func (f fields) boolean(key string) bool {
	raw := f[key]
	if isNull(raw) {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		b, _ := strconv.ParseBool(strings.TrimSpace(s))
		return b
	}
	return f.number(key) != 0
}

// strList reads an array, converting each element like str.
func (f fields) strList(key string) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(f[key], &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := rawString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// objects reads an array of objects, skipping elements that are not objects.
func (f fields) objects(key string) []fields {
	var items []json.RawMessage
	if err := json.Unmarshal(f[key], &items); err != nil {
		return nil
	}
	out := make([]fields, 0, len(items))
	for _, item := range items {
		var obj fields
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			continue
		}
		out = append(out, obj)
	}
	return out
}
