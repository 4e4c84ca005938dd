package protocol

import (
	"bytes"
	"encoding/json"
)

// DecodedField is one resolved tag occurrence. Enum is nil when the dictionary has
// no description for the value and encodes as null.
type DecodedField struct {
	Tag   string  `json:"tag" msgpack:"tag"`
	Name  string  `json:"name" msgpack:"name"`
	Value string  `json:"value" msgpack:"value"`
	Enum  *string `json:"enum" msgpack:"enum"`
}

// EnumDescription returns the resolved enum description, or "" and false.
func (f DecodedField) EnumDescription() (string, bool) {
	if f.Enum == nil {
		return "", false
	}
	return *f.Enum, true
}

// FieldSet holds decoded fields keyed by tag.
//
// Iteration follows the order in which each tag first appeared; setting a tag that is
// already present replaces its field but keeps its position.
type FieldSet struct {
	order []string
	byTag map[string]DecodedField
}

func NewFieldSet() *FieldSet {
	return &FieldSet{byTag: make(map[string]DecodedField)}
}

func (s *FieldSet) Set(f DecodedField) {
	if s.byTag == nil {
		s.byTag = make(map[string]DecodedField)
	}
	if _, ok := s.byTag[f.Tag]; !ok {
		s.order = append(s.order, f.Tag)
	}
	s.byTag[f.Tag] = f
}

func (s *FieldSet) Get(tag string) (DecodedField, bool) {
	if s == nil {
		return DecodedField{}, false
	}
	f, ok := s.byTag[tag]
	return f, ok
}

func (s *FieldSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Tags returns the tags in iteration order.
func (s *FieldSet) Tags() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Fields returns the fields in iteration order.
func (s *FieldSet) Fields() []DecodedField {
	if s == nil {
		return nil
	}
	out := make([]DecodedField, 0, len(s.order))
	for _, tag := range s.order {
		out = append(out, s.byTag[tag])
	}
	return out
}

// Map returns an unordered copy keyed by tag.
func (s *FieldSet) Map() map[string]DecodedField {
	out := make(map[string]DecodedField, s.Len())
	for _, f := range s.Fields() {
		out[f.Tag] = f
	}
	return out
}

// MarshalJSON encodes the set as an object keyed by tag, in iteration order.
func (s *FieldSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, f.Tag, f); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, v any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}

// DecodeResult is the outcome of decoding one raw message.
type DecodeResult struct {
	Fields *FieldSet
	Errors []DecodeError
	// Raw is the input with its delimiter canonicalized to SOH.
	Raw string
}

// ErrorMessages returns the diagnostics as strings.
func (r *DecodeResult) ErrorMessages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Error())
	}
	return out
}
