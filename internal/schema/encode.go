package schema

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Indent is the indentation unit of written JSON files.
const Indent = "    "

// Record pairs Fields with the schema that orders them, so that JSON output
// lists keys in schema order instead of the alphabetical map order.
type Record struct {
	Schema Schema
	Fields Fields
}

// MarshalJSON writes the schema's keys in order, followed by any extra keys
// in Fields that the schema does not name. HTML characters are not escaped.
func (r Record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	n := 0
	write := func(k, v string) error {
		if n > 0 {
			b.WriteByte(',')
		}
		n++
		if err := writeString(&b, k); err != nil {
			return err
		}
		b.WriteByte(':')
		return writeString(&b, v)
	}
	for _, f := range r.Schema {
		v, ok := r.Fields[f.Name]
		if !ok {
			continue
		}
		if err := write(f.Name, v); err != nil {
			return nil, err
		}
	}
	for _, k := range sortedKeys(r.Fields) {
		if r.Schema.Has(k) {
			continue
		}
		if err := write(k, r.Fields[k]); err != nil {
			return nil, err
		}
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// MarshalFields renders a single result the way result files are written:
// UTF-8 with non-ASCII kept literal and four-space indentation.
func (s Schema) MarshalFields(f Fields) ([]byte, error) {
	return encodeIndented(Record{Schema: s, Fields: f})
}

// MarshalList renders results as one JSON array, preserving slice order.
func (s Schema) MarshalList(list []Fields) ([]byte, error) {
	recs := make([]Record, 0, len(list))
	for _, f := range list {
		recs = append(recs, Record{Schema: s, Fields: f})
	}
	return encodeIndented(recs)
}

// Skeleton renders the schema as a JSON object with every field set to "".
// It is embedded in the prompt as the expected reply shape.
func (s Schema) Skeleton() string {
	empty := make(Fields, len(s))
	for _, f := range s {
		empty[f.Name] = ""
	}
	b, err := s.MarshalFields(empty)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func encodeIndented(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", Indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(b.Bytes(), "\n"), nil
}

func writeString(b *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	b.WriteString(strings.TrimRight(tmp.String(), "\n"))
	return nil
}

func sortedKeys(f Fields) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
