package schema

import (
	"sort"
)

// FieldSpec describes one known tag.
type FieldSpec struct {
	Tag   string            `json:"tag" yaml:"tag"`
	Name  string            `json:"name" yaml:"name"`
	Type  string            `json:"type,omitempty" yaml:"type,omitempty"`
	Enums map[string]string `json:"enums,omitempty" yaml:"enums,omitempty"`
}

// Dictionary maps tag identifiers to field metadata.
//
// A Dictionary is filled during its load phase and only read afterwards; concurrent
// readers need no locking as long as no load runs at the same time. A nil *Dictionary
// behaves as an empty one.
type Dictionary struct {
	fields map[string]FieldSpec
}

// New returns an empty dictionary.
func New() *Dictionary {
	return &Dictionary{fields: make(map[string]FieldSpec)}
}

// SyntheticName is the display name for a tag the dictionary does not know.
func SyntheticName(tag string) string {
	return "Tag" + tag
}

// Define inserts or replaces the spec for spec.Tag.
func (d *Dictionary) Define(spec FieldSpec) {
	d.apply([]FieldSpec{spec})
}

// Len returns the number of known tags.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.fields)
}

// Lookup returns the stored spec for tag.
func (d *Dictionary) Lookup(tag string) (FieldSpec, bool) {
	if d == nil {
		return FieldSpec{}, false
	}
	spec, ok := d.fields[tag]
	return spec, ok
}

// ResolveName returns the field name for tag, or Tag<tag> when unknown.
func (d *Dictionary) ResolveName(tag string) string {
	spec, ok := d.Lookup(tag)
	if !ok || spec.Name == "" {
		return SyntheticName(tag)
	}
	return spec.Name
}

// ResolveEnum returns the description of value for tag when one is declared.
func (d *Dictionary) ResolveEnum(tag, value string) (string, bool) {
	spec, ok := d.Lookup(tag)
	if !ok {
		return "", false
	}
	desc, ok := spec.Enums[value]
	return desc, ok
}

// Tags returns the known tags in lexical order.
func (d *Dictionary) Tags() []string {
	if d == nil {
		return nil
	}
	tags := make([]string, 0, len(d.fields))
	for tag := range d.fields {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Merge copies every spec of other into d. Specs from other replace existing ones.
func (d *Dictionary) Merge(other *Dictionary) {
	if other == nil {
		return
	}
	staged := make([]FieldSpec, 0, len(other.fields))
	for _, spec := range other.fields {
		staged = append(staged, spec)
	}
	d.apply(staged)
}

func (d *Dictionary) apply(staged []FieldSpec) {
	if d.fields == nil {
		d.fields = make(map[string]FieldSpec, len(staged))
	}
	for _, spec := range staged {
		if spec.Name == "" {
			spec.Name = SyntheticName(spec.Tag)
		}
		if spec.Enums == nil {
			spec.Enums = map[string]string{}
		}
		d.fields[spec.Tag] = spec
	}
}
