// Package ingest resolves inbound request bodies into raw messages.
//
// A body is classified once, at the serving boundary, into a Payload. Nothing past
// this package inspects body shapes.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Kind tags the shape of an inbound payload.
type Kind int

const (
	KindSingle Kind = iota + 1
	KindBatch
	KindPlainText
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindBatch:
		return "batch"
	case KindPlainText:
		return "plain_text"
	default:
		return "unknown"
	}
}

// RawKeys are the object keys accepted as the raw message, in priority order.
var RawKeys = []string{"raw", "log", "message"}

var ErrNoMessage = errors.New("ingest: no raw message found in request")

// Payload is the classified body: exactly one of the variants is meaningful for Kind.
type Payload struct {
	Kind   Kind
	Single string
	Batch  []string
	Text   string
}

// Raws returns the raw messages carried by p.
func (p Payload) Raws() []string {
	switch p.Kind {
	case KindSingle:
		return []string{p.Single}
	case KindBatch:
		out := make([]string, len(p.Batch))
		copy(out, p.Batch)
		return out
	case KindPlainText:
		return []string{p.Text}
	default:
		return nil
	}
}

// Classify resolves body into a Payload.
//
// A JSON object carries its message under raw, log or message, or under
// attributes.message / attributes.log (Datadog forwarding). A JSON array holds such
// objects or bare strings. Anything else is plain text. Trailing CR/LF is trimmed and
// empty messages are dropped; ErrNoMessage is returned when nothing remains.
func Classify(body []byte) (Payload, error) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		data = nil
	}

	switch v := data.(type) {
	case []any:
		raws := make([]string, 0, len(v))
		for _, entry := range v {
			var raw string
			switch e := entry.(type) {
			case map[string]any:
				raw = rawFromObject(e)
			case string:
				raw = e
			}
			if raw = trim(raw); raw != "" {
				raws = append(raws, raw)
			}
		}
		if len(raws) == 0 {
			return Payload{}, ErrNoMessage
		}
		return Payload{Kind: KindBatch, Batch: raws}, nil
	case map[string]any:
		raw := trim(rawFromObject(v))
		if raw == "" {
			return Payload{}, ErrNoMessage
		}
		return Payload{Kind: KindSingle, Single: raw}, nil
	case string:
		if raw := trim(v); raw != "" {
			return Payload{Kind: KindPlainText, Text: raw}, nil
		}
		return Payload{}, ErrNoMessage
	default:
		text := trim(strings.ToValidUTF8(string(body), "\uFFFD"))
		if text == "" {
			return Payload{}, ErrNoMessage
		}
		return Payload{Kind: KindPlainText, Text: text}, nil
	}
}

func rawFromObject(obj map[string]any) string {
	if attrs, ok := obj["attributes"].(map[string]any); ok {
		return firstString(attrs, "message", "log")
	}
	return firstString(obj, RawKeys...)
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func trim(s string) string {
	return strings.TrimRight(s, "\r\n")
}

// MaxBodyBytes bounds inflated request bodies.
const MaxBodyBytes = 8 << 20

// ReadBody reads r, inflating it when encoding is gzip.
func ReadBody(r io.Reader, encoding string) ([]byte, error) {
	if strings.EqualFold(strings.TrimSpace(encoding), "gzip") {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("ingest: gzip body: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("ingest: read body: %w", err)
	}
	if len(data) > MaxBodyBytes {
		return nil, fmt.Errorf("ingest: body exceeds %d bytes", MaxBodyBytes)
	}
	return bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), nil
}
