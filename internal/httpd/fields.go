package httpd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
)

// FieldSpec is one entry in a summarization request: the dotted path to
// walk from the root of a tracked element, and an optional rename
// applied to the emitted key.
type FieldSpec struct {
	Path   []string
	Rename string
}

// ParseFieldSpecs reads a summarization request body: a JSON array of
// [path, rename] tuples with a dot-separated path, e.g.
// [["signal.avg","sig_avg"]]; a bare path string is also accepted. An
// empty or absent rename falls back to the path's last segment. A nil/empty body
// is not an error — it just means "no summarization, emit everything."
func ParseFieldSpecs(r *http.Request) ([]FieldSpec, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return nil, nil
	}
	var raw []json.RawMessage
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("httpd: parse fields body: %w", err)
	}

	specs := make([]FieldSpec, 0, len(raw))
	for _, entry := range raw {
		var tuple [2]string
		if err := json.Unmarshal(entry, &tuple); err != nil {
			// Fall back to a bare path string with no rename.
			var path string
			if err2 := json.Unmarshal(entry, &path); err2 != nil {
				return nil, fmt.Errorf("httpd: parse field entry %s: %w", entry, err)
			}
			tuple[0] = path
		}
		specs = append(specs, FieldSpec{Path: strings.Split(tuple[0], "."), Rename: tuple[1]})
	}
	return specs, nil
}

// walkPath follows path through nested structs, pointers, and maps,
// matching struct field names case-insensitively.
func walkPath(v reflect.Value, path []string) (any, bool) {
	for _, seg := range path {
		for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
			if v.IsNil() {
				return nil, false
			}
			v = v.Elem()
		}
		if !v.IsValid() {
			return nil, false
		}
		switch v.Kind() {
		case reflect.Struct:
			f := v.FieldByNameFunc(func(name string) bool { return strings.EqualFold(name, seg) })
			if !f.IsValid() {
				return nil, false
			}
			v = f
		case reflect.Map:
			found := false
			for _, k := range v.MapKeys() {
				if strings.EqualFold(fmt.Sprint(k.Interface()), seg) {
					v = v.MapIndex(k)
					found = true
					break
				}
			}
			if !found {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

// Summarize walks each element per specs, returning one flattened
// key/value map per element. A nil or empty specs list yields one empty
// map per element.
func Summarize(elements []any, specs []FieldSpec) []map[string]any {
	out := make([]map[string]any, len(elements))
	for i, el := range elements {
		rv := reflect.ValueOf(el)
		m := make(map[string]any, len(specs))
		for _, spec := range specs {
			key := spec.Rename
			if key == "" {
				key = spec.Path[len(spec.Path)-1]
			}
			if val, ok := walkPath(rv, spec.Path); ok {
				m[key] = val
			} else {
				m[key] = nil
			}
		}
		out[i] = m
	}
	return out
}

// Format selects how WriteSummarized serializes a summarized element
// list onto the response.
type Format string

const (
	FormatJSON          Format = "json"
	FormatPrettyJSON    Format = "pretty"
	FormatElementStream Format = "stream"
	FormatIteratedTree  Format = "tree"
)

// FormatFromRequest reads the ?format= query parameter, defaulting to
// FormatJSON for anything unrecognized.
func FormatFromRequest(r *http.Request) Format {
	switch Format(r.URL.Query().Get("format")) {
	case FormatPrettyJSON:
		return FormatPrettyJSON
	case FormatElementStream:
		return FormatElementStream
	case FormatIteratedTree:
		return FormatIteratedTree
	default:
		return FormatJSON
	}
}

// WriteSummarized serializes elements (already summarized, or raw
// objects if the caller skipped summarization) onto w using format.
func WriteSummarized(w http.ResponseWriter, format Format, elements any) error {
	w.Header().Set("Content-Type", "application/json")

	rv := reflect.ValueOf(elements)
	if rv.Kind() != reflect.Slice {
		return json.NewEncoder(w).Encode(elements)
	}

	switch format {
	case FormatPrettyJSON:
		data, err := json.MarshalIndent(elements, "", "  ")
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err

	case FormatElementStream:
		// One JSON object per line, flushed as each is written, so a
		// subscriber can start rendering before the full result is in.
		bw := bufio.NewWriter(w)
		flusher, canFlush := w.(http.Flusher)
		enc := json.NewEncoder(bw)
		for i := 0; i < rv.Len(); i++ {
			if err := enc.Encode(rv.Index(i).Interface()); err != nil {
				return err
			}
			if canFlush {
				bw.Flush()
				flusher.Flush()
			}
		}
		return bw.Flush()

	case FormatIteratedTree:
		// Emit the same data, but as a tree walk that never holds the
		// whole result in one []byte: write the wrapping object and
		// each element incrementally instead of a single json.Marshal
		// of the full slice.
		if _, err := io.WriteString(w, `{"elements":[`); err != nil {
			return err
		}
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				if _, err := io.WriteString(w, ","); err != nil {
					return err
				}
			}
			data, err := json.Marshal(rv.Index(i).Interface())
			if err != nil {
				return err
			}
			if _, err := w.Write(data); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, fmt.Sprintf(`],"total":%d}`, rv.Len()))
		return err

	default: // FormatJSON
		return json.NewEncoder(w).Encode(elements)
	}
}
