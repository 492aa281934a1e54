package inventory

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/netbox-mcp/internal/netbox"
)

// Attributer is a relationship value exposing named attributes directly,
// e.g. a Ref built in code instead of decoded from JSON.
type Attributer interface {
	Attr(name string) (any, bool)
}

// Ref is a brief reference to a related object.
type Ref struct {
	ID      int
	Name    string
	Slug    string
	Display string
	Value   string
	Label   string
	Model   string
}

// Attr implements Attributer.
func (r Ref) Attr(name string) (any, bool) {
	var s string
	switch name {
	case "id":
		return r.ID, r.ID != 0
	case "name":
		s = r.Name
	case "slug":
		s = r.Slug
	case "display":
		s = r.Display
	case "value":
		s = r.Value
	case "label":
		s = r.Label
	case "model":
		s = r.Model
	default:
		return nil, false
	}
	return s, s != ""
}

// shape is the representation a relationship value arrived in.
type shape uint8

const (
	shapeAbsent  shape = iota
	shapeMapping       // decoded JSON object
	shapeObject        // Attributer
	shapeScalar        // string, number or bool
)

func shapeOf(v any) shape {
	switch t := v.(type) {
	case nil:
		return shapeAbsent
	case map[string]any, netbox.Record:
		return shapeMapping
	case *Ref:
		if t == nil {
			return shapeAbsent
		}
		return shapeObject
	case Attributer:
		return shapeObject
	case string, json.Number, float64, float32, int, int64, int32, bool:
		return shapeScalar
	}
	return shapeAbsent
}

// child descends into a mapping or object; scalars have no children.
func child(v any, name string) any {
	switch shapeOf(v) {
	case shapeMapping:
		switch m := v.(type) {
		case netbox.Record:
			return m[name]
		case map[string]any:
			return m[name]
		}
	case shapeObject:
		x, ok := v.(Attributer).Attr(name)
		if ok {
			return x
		}
	}
	return nil
}

// display resolves a relationship value to a display string: for a mapping
// or object the first non-empty attribute among names, for a scalar the
// scalar itself.
func display(v any, names ...string) string {
	switch shapeOf(v) {
	case shapeMapping, shapeObject:
		for _, n := range names {
			if s := text(child(v, n)); s != "" {
				return s
			}
		}
	case shapeScalar:
		return text(v)
	}
	return ""
}

// text renders a scalar. Anything else is empty.
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func intOf(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case int32:
		return int(t), true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		if f, err := t.Float64(); err == nil && f == math.Trunc(f) {
			return int(f), true
		}
	case float64:
		if t == math.Trunc(t) {
			return int(t), true
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func floatOf(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func intPtr(v any) *int {
	if n, ok := intOf(v); ok {
		return &n
	}
	return nil
}

func floatPtr(v any) *float64 {
	if f, ok := floatOf(v); ok {
		return &f
	}
	return nil
}

func boolOf(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	}
	return false
}

// tagNames flattens a tag list whose elements may be mappings, objects or
// bare strings. The result is never nil.
func tagNames(v any) []string {
	names := []string{}
	switch list := v.(type) {
	case []any:
		for _, tag := range list {
			if s := display(tag, "name", "slug", "display"); s != "" {
				names = append(names, s)
			}
		}
	case []string:
		for _, s := range list {
			if s != "" {
				names = append(names, s)
			}
		}
	case []Ref:
		for _, r := range list {
			if s := display(r, "name", "slug"); s != "" {
				names = append(names, s)
			}
		}
	}
	return names
}
