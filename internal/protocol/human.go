package protocol

import (
	"fmt"
	"strings"

	"github.com/danmuck/fixlens/internal/protocol/schema"
)

type summaryKey struct {
	name string
	tag  string
}

var (
	summaryTime   = []summaryKey{{"SendingTime", TagSendingTime}, {"TransactTime", TagTransactTime}}
	summarySender = []summaryKey{{"SenderCompID", TagSenderCompID}}
	summaryTarget = []summaryKey{{"TargetCompID", TagTargetCompID}}
	summaryType   = []summaryKey{{"MsgType", TagMsgType}}
	summaryOrder  = []summaryKey{{"ClOrdID", TagClOrdID}}
	summarySymbol = []summaryKey{{"Symbol", TagSymbol}, {"SecurityID", TagSecurityID}}
	summarySide   = []summaryKey{{"Side", TagSide}}
	summaryQty    = []summaryKey{{"OrderQty", TagOrderQty}, {"LeavesQty", TagLeavesQty}, {"OrderQtyData", ""}}
	summaryPrice  = []summaryKey{{"Price", TagPrice}}
)

// lookup returns the first non-empty value among keys. Each key is tried by its
// dictionary name and then by its synthesized Tag<id> name, so summaries work
// without a dictionary.
func lookup(flat *FlatMap, keys []summaryKey) string {
	for _, k := range keys {
		if v := flat.Scalar(k.name); v != "" {
			return v
		}
		if k.tag == "" {
			continue
		}
		if v := flat.Scalar(schema.SyntheticName(k.tag)); v != "" {
			return v
		}
	}
	return ""
}

// HumanSummary renders a one-line description of the business fields in flat.
// Missing fields render as empty segments.
func HumanSummary(flat *FlatMap) string {
	order := ""
	if id := lookup(flat, summaryOrder); id != "" {
		order = "(" + id + ")"
	}
	return fmt.Sprintf("%s %s -> %s %s %s: %s %s %s @ %s",
		lookup(flat, summaryTime),
		lookup(flat, summarySender),
		lookup(flat, summaryTarget),
		MsgTypeName(lookup(flat, summaryType)),
		order,
		lookup(flat, summarySymbol),
		SideName(lookup(flat, summarySide)),
		lookup(flat, summaryQty),
		lookup(flat, summaryPrice),
	)
}

// HumanDetail renders one "name(tag) = value" line per field. DetailPriority tags
// come first in that order; the rest follow in field order.
func HumanDetail(fields *FieldSet) string {
	lines := make([]string, 0, fields.Len())
	seen := make(map[string]struct{}, len(DetailPriority))
	for _, tag := range DetailPriority {
		seen[tag] = struct{}{}
		if f, ok := fields.Get(tag); ok {
			lines = append(lines, detailLine(f))
		}
	}
	for _, f := range fields.Fields() {
		if _, ok := seen[f.Tag]; ok {
			continue
		}
		lines = append(lines, detailLine(f))
	}
	return strings.Join(lines, "\n")
}

func detailLine(f DecodedField) string {
	line := fmt.Sprintf("%s(%s) = %s", f.Name, f.Tag, f.Value)
	if desc, ok := f.EnumDescription(); ok {
		line += "  // " + desc
	}
	return line
}
