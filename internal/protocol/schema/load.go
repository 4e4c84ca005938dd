package schema

import (
	"path/filepath"
	"strings"
)

// Format names a dictionary source format.
type Format string

const (
	FormatQuickFIX Format = "quickfix"
	FormatDocument Format = "document"
)

// FormatOf picks the dictionary format from a file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatQuickFIX, true
	case ".json", ".yaml", ".yml":
		return FormatDocument, true
	default:
		return "", false
	}
}

// Load builds a dictionary from path, choosing the loader by extension.
func Load(path string) (*Dictionary, error) {
	d := New()
	if err := d.Load(path); err != nil {
		return nil, err
	}
	return d, nil
}

// Load reads path into d, choosing the loader by extension.
func (d *Dictionary) Load(path string) error {
	format, ok := FormatOf(path)
	if !ok {
		return &LoadError{Path: path, Kind: ErrUnsupportedFormat, Reason: "expected .xml, .json, .yaml or .yml"}
	}
	if format == FormatQuickFIX {
		return d.LoadQuickFIX(path)
	}
	return d.LoadDocument(path)
}
