package protocol

import (
	"strings"

	"github.com/danmuck/fixlens/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

const (
	// SOH is the wire field delimiter.
	SOH = "\x01"
	// VisualDelimiter is the printable stand-in for SOH used in logs and examples.
	VisualDelimiter = "|"
)

// NormalizeDelimiters rewrites every '|' as SOH when raw uses '|' and carries no SOH.
// Input containing both characters is returned unchanged.
func NormalizeDelimiters(raw string) string {
	if strings.Contains(raw, VisualDelimiter) && !strings.Contains(raw, SOH) {
		return strings.ReplaceAll(raw, VisualDelimiter, SOH)
	}
	return raw
}

// Display renders a normalized message with the visual delimiter.
func Display(raw string) string {
	return strings.ReplaceAll(raw, SOH, VisualDelimiter)
}

// Decode tokenizes raw and resolves each tag through dict, which may be nil.
//
// Decode never fails: malformed tokens are skipped and reported, missing mandatory
// tags are reported, and a repeated tag keeps its last value.
func Decode(raw string, dict *schema.Dictionary) *DecodeResult {
	normalized := NormalizeDelimiters(raw)
	result := &DecodeResult{
		Fields: NewFieldSet(),
		Errors: []DecodeError{},
		Raw:    normalized,
	}

	for _, token := range strings.Split(normalized, SOH) {
		if token == "" {
			continue
		}
		tag, value, ok := strings.Cut(token, "=")
		if !ok {
			result.Errors = append(result.Errors, DecodeError{Kind: ErrMalformedToken, Token: token})
			continue
		}
		field := DecodedField{Tag: tag, Value: value}
		if dict == nil {
			field.Name = schema.SyntheticName(tag)
		} else {
			field.Name = dict.ResolveName(tag)
			if desc, ok := dict.ResolveEnum(tag, value); ok {
				field.Enum = &desc
			}
		}
		result.Fields.Set(field)
	}

	for _, tag := range MandatoryTags {
		if _, ok := result.Fields.Get(tag); !ok {
			result.Errors = append(result.Errors, DecodeError{Kind: ErrMissingRequiredTag, Tag: tag})
		}
	}

	log.Debug().
		Int("fields", result.Fields.Len()).
		Int("errors", len(result.Errors)).
		Msg("protocol.Decode")
	return result
}
