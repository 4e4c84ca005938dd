package protocol

import "github.com/danmuck/fixlens/internal/protocol/schema"

// Translation bundles a decode with every projection of it.
type Translation struct {
	Raw     string    `json:"raw"`
	Parsed  *FieldSet `json:"parsed"`
	Flat    *FlatMap  `json:"flat"`
	Summary string    `json:"summary"`
	Detail  string    `json:"detail"`
	Errors  []string  `json:"errors"`
}

// Translate decodes raw with dict and derives the flat, summary and detail views.
// Raw is reported with the visual delimiter.
func Translate(raw string, dict *schema.Dictionary) Translation {
	return Project(Decode(raw, dict))
}

// Project derives every view of an existing decode.
func Project(res *DecodeResult) Translation {
	flat := Flatten(res.Fields)
	return Translation{
		Raw:     Display(res.Raw),
		Parsed:  res.Fields,
		Flat:    flat,
		Summary: HumanSummary(flat),
		Detail:  HumanDetail(res.Fields),
		Errors:  res.ErrorMessages(),
	}
}

// Event returns the translation as a plain map for log sinks and msgpack encoders.
func (t Translation) Event() map[string]any {
	return map[string]any{
		"raw":     t.Raw,
		"parsed":  t.Parsed.Map(),
		"flat":    t.Flat.Map(),
		"summary": t.Summary,
		"detail":  t.Detail,
		"errors":  t.Errors,
	}
}
