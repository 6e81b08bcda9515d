package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Field is one named value the model is asked to extract.
type Field struct {
	Name        string
	Description string
}

// Schema is an ordered list of fields. The order drives both the prompt and
// the key order of written JSON.
type Schema []Field

// Fields maps field names to extracted values.
type Fields map[string]string

// ErrTrailingData is returned when a reply carries anything after its JSON
// value.
var ErrTrailingData = errors.New("extra data after JSON value")

// ErrNotObject is returned when a model reply decodes to something other than
// a JSON object.
var ErrNotObject = errors.New("reply is not a JSON object")

// Default is the RFP field set.
var Default = Schema{
	{"Bid Number", "Unique identifier of the bid like the solicitation number or the PORFP number."},
	{"Title", "The title or subject of the RFP."},
	{"Due Date", "The deadline for submission or the proposal due date."},
	{"Bid Submission Type", "The type of submission (e.g., online, in-person)."},
	{"Term of Bid", "The duration for which the bid is valid or applicable."},
	{"Pre-Bid Meeting", "Details about any scheduled pre-bid meetings, if applicable."},
	{"Installation Requirements", "Any requirements related to the installation of products/services."},
	{"Bid Bond Requirement", "Any bond requirements associated with the bid."},
	{"Delivery Date", "Expected delivery date for products or services."},
	{"Payment Terms", "Details about payment terms or schedules."},
	{"Additional Documentation Required", "List of additional documents required for submission."},
	{"MFG for Registration", "Manufacturer details for registration, if applicable."},
	{"Contract or Cooperative to Use", "Applicable contracts or cooperatives."},
	{"Model Number", "Model numbers of products mentioned in the RFP."},
	{"Part Number", "Part numbers of products mentioned in the RFP."},
	{"Product Description", "Description of the product(s) or service(s)."},
	{"Contact Information", "Contact details for inquiries about the RFP like the mail, phone number, POC details or any other details specified in the RFP documents."},
	{"Company Name", "The company or organization issuing the RFP."},
	{"Bid Summary", "A concise summary of the bid."},
	{"Product Specifications", "Detailed specifications of the products."},
}

// Names returns the field names in schema order.
func (s Schema) Names() []string {
	out := make([]string, 0, len(s))
	for _, f := range s {
		out = append(out, f.Name)
	}
	return out
}

// Has reports whether name is one of the schema's fields.
func (s Schema) Has(name string) bool {
	for _, f := range s {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Backfill returns a copy of in holding exactly the schema's keys. Missing
// keys become empty strings and keys outside the schema are dropped.
func (s Schema) Backfill(in Fields) Fields {
	out := make(Fields, len(s))
	for _, f := range s {
		out[f.Name] = in[f.Name]
	}
	return out
}

// Decode parses a model reply into Fields. Scalars are stringified, arrays of
// scalars are joined with "; " and nested objects are kept as compact JSON.
// The returned map holds only keys present in both the reply and the schema,
// plus the number of keys the reply carried in total.
func (s Schema) Decode(raw []byte) (Fields, int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, 0, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, 0, ErrTrailingData
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, 0, ErrNotObject
	}
	out := make(Fields, len(s))
	for _, f := range s {
		val, present := obj[f.Name]
		if !present {
			continue
		}
		out[f.Name] = stringify(val)
	}
	return out, len(obj), nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := strings.TrimSpace(stringify(e)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		var b bytes.Buffer
		enc := json.NewEncoder(&b)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t); err != nil {
			return fmt.Sprint(t)
		}
		return strings.TrimRight(b.String(), "\n")
	}
}
