package schema

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type documentField struct {
	Name   string            `yaml:"name"`
	Label  string            `yaml:"label"`
	Type   string            `yaml:"type"`
	Enum   map[string]string `yaml:"enum"`
	Values map[string]string `yaml:"values"`
}

// LoadDocument builds a dictionary from a JSON or YAML field document.
func LoadDocument(path string) (*Dictionary, error) {
	d := New()
	if err := d.LoadDocument(path); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadDocument reads a JSON or YAML field document into d.
//
// The top level is either {"fields": {tag: descriptor}} or {tag: descriptor}.
// A descriptor is a mapping with name (or label), type and enum (or values), or a
// bare string taken as the name.
func (d *Dictionary) LoadDocument(path string) error {
	data, err := readSource(path)
	if err != nil {
		return err
	}
	staged, err := parseDocument(path, data)
	if err != nil {
		return err
	}
	d.apply(staged)
	log.Debug().Str("path", path).Int("fields", len(staged)).Msg("schema.LoadDocument")
	return nil
}

func parseDocument(path string, data []byte) ([]FieldSpec, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, malformed(path, "invalid document", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, malformed(path, "empty document", nil)
	}
	top := doc.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, malformed(path, "top level must be a mapping", nil)
	}

	fields := top
	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i].Value != "fields" {
			continue
		}
		fields = top.Content[i+1]
		if fields.Kind != yaml.MappingNode {
			return nil, malformed(path, "fields must be a mapping", nil)
		}
		break
	}

	staged := make([]FieldSpec, 0, len(fields.Content)/2)
	for i := 0; i+1 < len(fields.Content); i += 2 {
		key, node := fields.Content[i], fields.Content[i+1]
		tag := strings.TrimSpace(key.Value)
		if key.Kind != yaml.ScalarNode || tag == "" {
			return nil, malformed(path, fmt.Sprintf("entry at line %d has no tag", key.Line), nil)
		}
		spec, err := documentSpec(path, tag, node)
		if err != nil {
			return nil, err
		}
		staged = append(staged, spec)
	}
	return staged, nil
}

func documentSpec(path, tag string, node *yaml.Node) (FieldSpec, error) {
	spec := FieldSpec{Tag: tag, Enums: map[string]string{}}
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			spec.Name = strings.TrimSpace(node.Value)
		}
	case yaml.MappingNode:
		var raw documentField
		if err := node.Decode(&raw); err != nil {
			return FieldSpec{}, malformed(path, fmt.Sprintf("field %s", tag), err)
		}
		spec.Name = strings.TrimSpace(raw.Name)
		if spec.Name == "" {
			spec.Name = strings.TrimSpace(raw.Label)
		}
		spec.Type = strings.TrimSpace(raw.Type)
		for value, desc := range raw.Values {
			spec.Enums[value] = desc
		}
		for value, desc := range raw.Enum {
			spec.Enums[value] = desc
		}
	default:
		return FieldSpec{}, malformed(path, fmt.Sprintf("field %s must be a mapping or a name", tag), nil)
	}
	return spec, nil
}
