package dsl

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Script values are nil, bool, float64, string, []any and map[string]any.

// normalize converts a host value to a script value. Common Go types are
// converted directly; anything else goes through a JSON round trip.
func normalize(v any) any {
	switch val := v.(type) {
	case nil, bool, float64, string:
		return val
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		return f
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalize(e)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalize(e)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = e
		}
		return out
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return string(data)
	}
	return out
}

// truthy follows JavaScript truthiness: nil, false, 0, NaN and "" are
// false; every array and object is true.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0 && !math.IsNaN(val)
	case string:
		return val != ""
	}
	return true
}

// toNumber coerces v to a number. Strings are parsed after trimming, with
// "" as 0; booleans are 0 or 1.
func toNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// operand converts a comparison or arithmetic operand. Unlike equality,
// these operators read null as 0.
func operand(v any) (float64, bool) {
	if v == nil {
		return 0, true
	}
	return toNumber(v)
}

// looseEqual compares with type coercion between numbers, strings and
// booleans. nil equals only nil; arrays and objects compare structurally.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return av == bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av == bv
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return av == bv
		}
	case []any, map[string]any:
		return reflect.DeepEqual(a, b)
	}
	if isComposite(b) {
		return false
	}
	an, aok := toNumber(a)
	bn, bok := toNumber(b)
	return aok && bok && an == bn
}

func isComposite(v any) bool {
	switch v.(type) {
	case []any, map[string]any:
		return true
	}
	return false
}

// compare implements <, >, <= and >=. Two strings compare lexically;
// anything else compares numerically with null as 0, and is false when
// either side is not a number.
func compare(op string, a, b any) bool {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			switch op {
			case "<":
				return as < bs
			case ">":
				return as > bs
			case "<=":
				return as <= bs
			case ">=":
				return as >= bs
			}
		}
	}
	an, aok := operand(a)
	bn, bok := operand(b)
	if !aok || !bok {
		return false
	}
	switch op {
	case "<":
		return an < bn
	case ">":
		return an > bn
	case "<=":
		return an <= bn
	case ">=":
		return an >= bn
	}
	return false
}

// add implements +: numeric addition, string concatenation when either side
// is a string, array concatenation for two arrays.
func add(a, b any) any {
	if af, ok := a.(float64); ok {
		if bf, ok := b.(float64); ok {
			return af + bf
		}
	}
	_, aStr := a.(string)
	_, bStr := b.(string)
	if aStr || bStr {
		return stringify(a) + stringify(b)
	}
	if aa, ok := a.([]any); ok {
		if ba, ok := b.([]any); ok {
			out := make([]any, 0, len(aa)+len(ba))
			return append(append(out, aa...), ba...)
		}
	}
	return arithmetic("+", a, b)
}

// arithmetic applies a numeric operator, reading null as 0. Non-numeric
// operands and division or modulo by zero yield nil.
func arithmetic(op string, a, b any) any {
	if isComposite(a) || isComposite(b) {
		return nil
	}
	an, aok := operand(a)
	bn, bok := operand(b)
	if !aok || !bok {
		return nil
	}
	switch op {
	case "+":
		return an + bn
	case "-":
		return an - bn
	case "*":
		return an * bn
	case "/":
		if bn == 0 {
			return nil
		}
		return an / bn
	case "%":
		if bn == 0 {
			return nil
		}
		return math.Mod(an, bn)
	}
	return nil
}

// contains implements the contains operator. An object on the left is
// first reduced to its input or message field, or its string form.
// Strings match substrings and arrays match elements, both ignoring case.
func contains(haystack, needle any) bool {
	if obj, ok := haystack.(map[string]any); ok {
		switch {
		case obj["input"] != nil:
			haystack = obj["input"]
		case obj["message"] != nil:
			haystack = obj["message"]
		default:
			haystack = stringify(obj)
		}
	}

	switch h := haystack.(type) {
	case string:
		return strings.Contains(strings.ToLower(h), strings.ToLower(stringify(needle)))
	case []any:
		for _, el := range h {
			if es, ok := el.(string); ok {
				if ns, ok := needle.(string); ok {
					if strings.EqualFold(es, ns) {
						return true
					}
					continue
				}
			}
			if looseEqual(el, needle) {
				return true
			}
		}
	}
	return false
}

// stringify renders a value as text. Numbers print without trailing zeros,
// nil prints as null and composites print as JSON.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return formatNumber(val)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// member returns obj[key]. Objects are indexed by the key's text, arrays
// and strings by integer index; `length` reports array and string length.
// Anything missing is nil.
func member(obj, key any) any {
	switch o := obj.(type) {
	case map[string]any:
		return o[stringify(key)]
	case []any:
		if idx, ok := index(key, len(o)); ok {
			return o[idx]
		}
		if key == "length" {
			return float64(len(o))
		}
	case string:
		runes := []rune(o)
		if idx, ok := index(key, len(runes)); ok {
			return string(runes[idx])
		}
		if key == "length" {
			return float64(len(runes))
		}
	}
	return nil
}

func index(key any, length int) (int, bool) {
	var f float64
	switch k := key.(type) {
	case float64:
		f = k
	case string:
		n, err := strconv.Atoi(k)
		if err != nil {
			return 0, false
		}
		f = float64(n)
	default:
		return 0, false
	}
	if f != math.Trunc(f) || f < 0 || f >= float64(length) {
		return 0, false
	}
	return int(f), true
}

// smartMerge lifts the keys of a result's nested data object onto the top
// level without overwriting keys already present there.
func smartMerge(v any) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return v
	}
	data, ok := obj["data"].(map[string]any)
	if !ok {
		return v
	}
	merged := make(map[string]any, len(obj)+len(data))
	for k, e := range obj {
		merged[k] = e
	}
	for k, e := range data {
		if _, exists := merged[k]; !exists {
			merged[k] = e
		}
	}
	return merged
}
