package observability

import (
	"fmt"
	"testing"
	"time"

	"github.com/danmuck/fixlens/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("fixlens-a", "POST", "/parse", 200, 12*time.Millisecond)
	RecordExport("splunk", true, 24*time.Millisecond)

	before := testutil.ToFloat64(decodeErrors.WithLabelValues("missing_required_tag"))
	RecordDecode("", []string{"missing_required_tag", "missing_required_tag"})
	after := testutil.ToFloat64(decodeErrors.WithLabelValues("missing_required_tag"))
	if after-before != 2 {
		t.Fatalf("expected 2 recorded diagnostics, got %v", after-before)
	}
	if got := testutil.ToFloat64(messagesDecoded.WithLabelValues("unknown", "false")); got < 1 {
		t.Fatalf("expected unknown msg_type counter, got %v", got)
	}
}

func TestRecordDecodeBoundsMsgTypeLabels(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()

	RecordDecode("D", nil)
	RecordDecode("8", nil)
	before := testutil.CollectAndCount(messagesDecoded)
	for i := 0; i < 100; i++ {
		RecordDecode(fmt.Sprintf("junk-%d", i), nil)
		RecordDecode(fmt.Sprintf("junk-%d", i), []string{"malformed_token"})
	}
	after := testutil.CollectAndCount(messagesDecoded)
	// at most the two "other" series are new
	if after-before > 2 {
		t.Fatalf("junk msg types grew series from %d to %d", before, after)
	}
	if got := testutil.ToFloat64(messagesDecoded.WithLabelValues("other", "true")); got < 100 {
		t.Fatalf("expected junk codes under other, got %v", got)
	}

	for code, want := range map[string]string{"D": "D", "": "unknown", "ZZ": "other", "A": "A"} {
		if got := msgTypeLabel(code); got != want {
			t.Fatalf("msgTypeLabel(%q) = %q, want %q", code, got, want)
		}
	}
}
