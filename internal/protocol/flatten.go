package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/danmuck/fixlens/internal/protocol/schema"
)

// Value is a flattened field value: a scalar, or a list once a name repeats.
type Value struct {
	values []string
	list   bool
}

// Scalar returns the value, or the first element of a list.
func (v Value) Scalar() string {
	if len(v.values) == 0 {
		return ""
	}
	return v.values[0]
}

func (v Value) IsList() bool {
	return v.list
}

// Strings returns every value in first-seen order.
func (v Value) Strings() []string {
	out := make([]string, len(v.values))
	copy(out, v.values)
	return out
}

// Interface returns a string or a []string.
func (v Value) Interface() any {
	if v.list {
		return v.Strings()
	}
	return v.Scalar()
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) add(s string) {
	if len(v.values) > 0 {
		v.list = true
	}
	v.values = append(v.values, s)
}

// FlatMap maps resolved field names to values in first-seen order.
type FlatMap struct {
	order  []string
	values map[string]*Value
}

// Flatten keys fields by resolved name. The first value for a name is stored as a
// scalar; a second promotes the slot to a list and later values append to it.
func Flatten(fields *FieldSet) *FlatMap {
	m := &FlatMap{values: make(map[string]*Value, fields.Len())}
	for _, f := range fields.Fields() {
		name := f.Name
		if name == "" {
			name = schema.SyntheticName(f.Tag)
		}
		m.add(name, f.Value)
	}
	return m
}

func (m *FlatMap) add(name, value string) {
	v, ok := m.values[name]
	if !ok {
		v = &Value{}
		m.values[name] = v
		m.order = append(m.order, name)
	}
	v.add(value)
}

func (m *FlatMap) Get(name string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[name]
	if !ok {
		return Value{}, false
	}
	return *v, true
}

// Scalar returns the value for name, the first element when it is a list, or "".
func (m *FlatMap) Scalar(name string) string {
	v, _ := m.Get(name)
	return v.Scalar()
}

func (m *FlatMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Names returns the keys in first-seen order.
func (m *FlatMap) Names() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Map returns an unordered copy with string or []string values.
func (m *FlatMap) Map() map[string]any {
	out := make(map[string]any, m.Len())
	for _, name := range m.Names() {
		out[name] = m.values[name].Interface()
	}
	return out
}

func (m *FlatMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, name, m.values[name]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
