// Package mediaurl locates a playable media URL inside arbitrarily shaped
// provider payloads.
//
// Providers report "where is my video" in inconsistent places: a top-level
// string, a list of outputs, a result object, or several levels deep. The
// search is a structural walk that prefers well-known field names and falls
// back to any string containing "http". Absence of a URL is normal (the task
// may still be running) and is reported as an empty string, never an error.
package mediaurl

import (
	"encoding/json"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// PriorityKeys are checked, in order, on every object before any other field.
var PriorityKeys = []string{
	"video_url",
	"videoUrl",
	"url",
	"uri",
	"video",
	"src",
	"file",
	"download_url",
}

// Qualifies reports whether s is accepted as a media URL candidate.
// Upstream payloads are trusted, so the check is a plain substring match.
func Qualifies(s string) bool {
	return strings.Contains(s, "http")
}

// IsHTTPURL reports whether s parses as an absolute http or https URL.
func IsHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Extract searches a decoded value (strings, slices, arrays, maps with string
// keys, pointers, gjson.Result, json.RawMessage) for a media URL.
// Maps are walked in sorted key order. Reference cycles end the branch.
func Extract(v any) string {
	return extract(v, Qualifies)
}

// ExtractURL is Extract accepting only strings that satisfy IsHTTPURL, so
// prose mentioning "http" does not end the search.
func ExtractURL(v any) string {
	return extract(v, IsHTTPURL)
}

// ExtractJSON runs the same search over raw JSON, walking objects in
// document order. Invalid JSON yields "".
func ExtractJSON(raw []byte) string {
	return extractJSON(raw, Qualifies)
}

// ExtractURLJSON is ExtractJSON accepting only strings that satisfy IsHTTPURL.
func ExtractURLJSON(raw []byte) string {
	return extractJSON(raw, IsHTTPURL)
}

func extract(v any, qualifies func(string) bool) string {
	s := &scanner{visited: make(map[visitKey]struct{}), qualifies: qualifies}
	return s.value(reflect.ValueOf(v))
}

func extractJSON(raw []byte, qualifies func(string) bool) string {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return ""
	}
	return walker(qualifies).result(gjson.ParseBytes(raw))
}

type visitKey struct {
	kind reflect.Kind
	ptr  uintptr
	n    int
}

type scanner struct {
	visited   map[visitKey]struct{}
	qualifies func(string) bool
}

// seen marks v as visited and reports whether it had been visited before.
func (s *scanner) seen(v reflect.Value, n int) bool {
	k := visitKey{kind: v.Kind(), ptr: v.Pointer(), n: n}
	if _, ok := s.visited[k]; ok {
		return true
	}
	s.visited[k] = struct{}{}
	return false
}

func (s *scanner) value(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}

	if v.CanInterface() {
		switch t := v.Interface().(type) {
		case gjson.Result:
			return walker(s.qualifies).result(t)
		case json.RawMessage:
			return extractJSON(t, s.qualifies)
		}
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return ""
		}
		return s.value(v.Elem())
	case reflect.Pointer:
		if v.IsNil() || s.seen(v, 0) {
			return ""
		}
		return s.value(v.Elem())
	case reflect.String:
		if s.qualifies(v.String()) {
			return v.String()
		}
		return ""
	case reflect.Slice:
		if v.IsNil() || v.Len() == 0 || s.seen(v, v.Len()) {
			return ""
		}
		return s.elements(v)
	case reflect.Array:
		return s.elements(v)
	case reflect.Map:
		if v.IsNil() || v.Type().Key().Kind() != reflect.String || s.seen(v, 0) {
			return ""
		}
		return s.object(v)
	default:
		return ""
	}
}

func (s *scanner) elements(v reflect.Value) string {
	for i := 0; i < v.Len(); i++ {
		if url := s.value(v.Index(i)); url != "" {
			return url
		}
	}
	return ""
}

func (s *scanner) object(v reflect.Value) string {
	keyType := v.Type().Key()
	for _, name := range PriorityKeys {
		field := v.MapIndex(reflect.ValueOf(name).Convert(keyType))
		if str, ok := stringOf(field); ok && s.qualifies(str) {
			return str
		}
	}

	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	for _, k := range keys {
		if str, ok := stringOf(v.MapIndex(k)); ok && s.qualifies(str) {
			return str
		}
	}

	for _, k := range keys {
		field := v.MapIndex(k)
		if _, ok := stringOf(field); ok {
			continue
		}
		if url := s.value(field); url != "" {
			return url
		}
	}
	return ""
}

// stringOf unwraps interfaces and returns the string held by v, if any.
func stringOf(v reflect.Value) (string, bool) {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}
	if !v.IsValid() || v.Kind() != reflect.String {
		return "", false
	}
	return v.String(), true
}

// walker searches gjson values with a given qualifier.
type walker func(string) bool

func (q walker) result(r gjson.Result) string {
	switch {
	case r.Type == gjson.String:
		if q(r.Str) {
			return r.Str
		}
		return ""
	case r.IsArray():
		var found string
		r.ForEach(func(_, el gjson.Result) bool {
			found = q.result(el)
			return found == ""
		})
		return found
	case r.IsObject():
		return q.object(r)
	default:
		return ""
	}
}

func (q walker) object(r gjson.Result) string {
	for _, name := range PriorityKeys {
		field := r.Get(name)
		if field.Type == gjson.String && q(field.Str) {
			return field.Str
		}
	}

	var found string
	r.ForEach(func(_, field gjson.Result) bool {
		if field.Type == gjson.String && q(field.Str) {
			found = field.Str
		}
		return found == ""
	})
	if found != "" {
		return found
	}

	r.ForEach(func(_, field gjson.Result) bool {
		if field.IsObject() || field.IsArray() {
			found = q.result(field)
		}
		return found == ""
	})
	return found
}
