package schema

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

type quickfixField struct {
	Number string          `xml:"number,attr"`
	Name   string          `xml:"name,attr"`
	Type   string          `xml:"type,attr"`
	Values []quickfixValue `xml:"value"`
}

type quickfixValue struct {
	Enum        string `xml:"enum,attr"`
	Description string `xml:"description,attr"`
}

// LoadQuickFIX builds a dictionary from a QuickFIX XML data dictionary.
func LoadQuickFIX(path string) (*Dictionary, error) {
	d := New()
	if err := d.LoadQuickFIX(path); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadQuickFIX reads every fields/field entry of a QuickFIX XML file into d.
//
// An entry without a number attribute rejects the whole file; nothing is applied
// unless every entry is valid.
func (d *Dictionary) LoadQuickFIX(path string) error {
	data, err := readSource(path)
	if err != nil {
		return err
	}
	staged, err := parseQuickFIX(path, data)
	if err != nil {
		return err
	}
	d.apply(staged)
	log.Debug().Str("path", path).Int("fields", len(staged)).Msg("schema.LoadQuickFIX")
	return nil
}

func parseQuickFIX(path string, data []byte) ([]FieldSpec, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	var (
		staged []FieldSpec
		stack  []string
		root   bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed(path, "invalid xml", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			root = true
			if el.Name.Local == "field" && len(stack) > 0 && stack[len(stack)-1] == "fields" {
				var raw quickfixField
				if err := dec.DecodeElement(&raw, &el); err != nil {
					return nil, malformed(path, "invalid field entry", err)
				}
				spec, err := quickfixSpec(path, raw, len(staged))
				if err != nil {
					return nil, err
				}
				staged = append(staged, spec)
				continue
			}
			stack = append(stack, el.Name.Local)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if !root {
		return nil, malformed(path, "empty document", nil)
	}
	return staged, nil
}

func quickfixSpec(path string, raw quickfixField, index int) (FieldSpec, error) {
	tag := strings.TrimSpace(raw.Number)
	if tag == "" {
		return FieldSpec{}, malformed(path, fmt.Sprintf("field[%d] (%q) missing number", index, raw.Name), nil)
	}
	spec := FieldSpec{
		Tag:   tag,
		Name:  strings.TrimSpace(raw.Name),
		Type:  strings.TrimSpace(raw.Type),
		Enums: make(map[string]string, len(raw.Values)),
	}
	for _, v := range raw.Values {
		if v.Enum == "" {
			return FieldSpec{}, malformed(path, fmt.Sprintf("field %s value missing enum", tag), nil)
		}
		desc := v.Description
		if desc == "" {
			desc = v.Enum
		}
		spec.Enums[v.Enum] = desc
	}
	return spec, nil
}

func readSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(path, err)
	}
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return data, nil
}
