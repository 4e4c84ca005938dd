package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/fixlens/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fixlens",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fixlens",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	messagesDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fixlens",
			Subsystem: "decoder",
			Name:      "messages_total",
			Help:      "Messages decoded, by message type and whether diagnostics were raised.",
		},
		[]string{"msg_type", "clean"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fixlens",
			Subsystem: "decoder",
			Name:      "errors_total",
			Help:      "Decode diagnostics by kind.",
		},
		[]string{"kind"},
	)
	exports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fixlens",
			Subsystem: "export",
			Name:      "events_total",
			Help:      "Events forwarded to log sinks.",
		},
		[]string{"sink", "success"},
	)
	exportDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fixlens",
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "Sink request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"sink", "success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, messagesDecoded, decodeErrors, exports, exportDuration)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordDecode counts one decoded message and each of its diagnostic kinds.
// msgType comes straight off the wire, so only known codes become label values.
func RecordDecode(msgType string, errorKinds []string) {
	RegisterMetrics()
	messagesDecoded.WithLabelValues(msgTypeLabel(msgType), strconv.FormatBool(len(errorKinds) == 0)).Inc()
	for _, kind := range errorKinds {
		decodeErrors.WithLabelValues(kind).Inc()
	}
}

func msgTypeLabel(code string) string {
	switch {
	case code == "":
		return "unknown"
	case protocol.KnownMsgType(code):
		return code
	default:
		return "other"
	}
}

func RecordExport(sink string, success bool, duration time.Duration) {
	RegisterMetrics()
	successLabel := strconv.FormatBool(success)
	exports.WithLabelValues(sink, successLabel).Inc()
	exportDuration.WithLabelValues(sink, successLabel).Observe(duration.Seconds())
}
