package protocol

import "fmt"

// DecodeErrorKind classifies a per-message diagnostic.
type DecodeErrorKind int

const (
	ErrMalformedToken DecodeErrorKind = iota + 1
	ErrMissingRequiredTag
)

func (k DecodeErrorKind) String() string {
	switch k {
	case ErrMalformedToken:
		return "malformed_token"
	case ErrMissingRequiredTag:
		return "missing_required_tag"
	default:
		return "unknown"
	}
}

// DecodeError is a recoverable diagnostic collected while decoding.
type DecodeError struct {
	Kind  DecodeErrorKind
	Tag   string
	Token string
}

func (e DecodeError) Error() string {
	switch e.Kind {
	case ErrMalformedToken:
		return fmt.Sprintf("malformed token (no '='): %s", e.Token)
	case ErrMissingRequiredTag:
		return fmt.Sprintf("missing required tag %s", e.Tag)
	default:
		return fmt.Sprintf("decode error: %s", e.Kind)
	}
}
