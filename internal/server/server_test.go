package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/fixlens/internal/auth"
	"github.com/danmuck/fixlens/internal/dicts"
	"github.com/danmuck/fixlens/internal/export"
	"github.com/danmuck/fixlens/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	newOrder  = "8=FIX.4.4|9=176|35=D|49=CLIENT|56=BROKER|11=1|55=ABC|54=1|38=100|44=10.5|10=000|"
	customMsg = "8=FIX.4.4|9=176|35=D|49=CLIENT|56=BROKER|11=1|9999=HELLO|10=000|"
	customXML = `<?xml version="1.0"?>
<fix>
  <fields>
    <field number="9999" name="CustomTag" type="STRING"/>
  </fields>
</fix>
`
)

type recordingSink struct {
	mu     sync.Mutex
	events []export.Event
}

func (r *recordingSink) Name() string { return "recording" }
func (r *recordingSink) Send(_ context.Context, e export.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func newTestServer(t *testing.T, sinks ...export.Sink) *Server {
	t.Helper()
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	s := Appear(Options{
		Name:     "fixlens-test",
		Addr:     ":0",
		Store:    dicts.NewStore(t.TempDir()),
		Exporter: export.NewDispatcher(len(sinks) > 0, sinks...),
	})
	s.RegisterRoutes()
	return s
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	return rr
}

func postJSON(s *Server, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return do(s, req)
}

func decodeObject(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v body=%s", err, rr.Body.String())
	}
	return body
}

func TestParseSingleObject(t *testing.T) {
	sink := &recordingSink{}
	s := newTestServer(t, sink)

	rr := postJSON(s, "/parse", map[string]string{"raw": newOrder})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	body := decodeObject(t, rr)
	parsed := body["parsed"].(map[string]any)
	if parsed["35"].(map[string]any)["value"] != "D" {
		t.Fatalf("unexpected parsed 35: %#v", parsed["35"])
	}
	if body["flat"].(map[string]any)["Tag35"] != "D" {
		t.Fatalf("unexpected flat: %#v", body["flat"])
	}
	if !strings.Contains(body["summary"].(string), "BUY 100 @ 10.5") {
		t.Fatalf("unexpected summary: %q", body["summary"])
	}
	if body["raw"] != newOrder {
		t.Fatalf("unexpected raw: %q", body["raw"])
	}
	if errs := body["errors"].([]any); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(sink.events) != 1 || sink.events[0]["summary"] != body["summary"] {
		t.Fatalf("expected one exported event, got %#v", sink.events)
	}
}

func TestParseShapes(t *testing.T) {
	s := newTestServer(t)

	rr := postJSON(s, "/parse", []any{map[string]string{"log": newOrder}, "35=0|8=FIX.4.4"})
	var list []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil || len(list) != 2 {
		t.Fatalf("expected two results, err=%v body=%s", err, rr.Body.String())
	}
	if errs := list[1]["errors"].([]any); len(errs) != 2 {
		t.Fatalf("expected missing 9 and 10, got %v", errs)
	}

	rr = postJSON(s, "/parse", map[string]any{"attributes": map[string]string{"message": newOrder}})
	if rr.Code != http.StatusOK {
		t.Fatalf("datadog shape: status %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/parse", strings.NewReader(newOrder+"\n"))
	req.Header.Set("Content-Type", "text/plain")
	rr = do(s, req)
	if rr.Code != http.StatusOK || decodeObject(t, rr)["raw"] != newOrder {
		t.Fatalf("plain text: status %d body=%s", rr.Code, rr.Body.String())
	}

	rr = postJSON(s, "/parse", map[string]string{"other": "x"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing raw, got %d", rr.Code)
	}
	if decodeObject(t, rr)["error"] != "no raw message found in request" {
		t.Fatalf("unexpected error body: %s", rr.Body.String())
	}
}

func TestParseGzipBody(t *testing.T) {
	s := newTestServer(t)
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte(`{"raw": "` + newOrder + `"}`))
	_ = zw.Close()

	req := httptest.NewRequest(http.MethodPost, "/parse", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	rr := do(s, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestParseMsgpackResponse(t *testing.T) {
	s := newTestServer(t)
	data, _ := json.Marshal(map[string]string{"raw": newOrder})
	req := httptest.NewRequest(http.MethodPost, "/parse", bytes.NewReader(data))
	req.Header.Set("Accept", "application/msgpack")
	rr := do(s, req)

	if ct := rr.Header().Get("Content-Type"); ct != "application/msgpack" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body map[string]any
	if err := msgpack.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode msgpack: %v", err)
	}
	if body["flat"].(map[string]any)["Tag55"] != "ABC" {
		t.Fatalf("unexpected flat: %#v", body["flat"])
	}
}

func TestParseBatch(t *testing.T) {
	s := newTestServer(t)
	rr := postJSON(s, "/parse/batch", map[string][]string{"raws": {newOrder}})
	var list []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("expected a one element array, err=%v body=%s", err, rr.Body.String())
	}
	if _, ok := list[0]["parsed"]; !ok {
		t.Fatalf("missing parsed in batch result: %#v", list[0])
	}

	rr = postJSON(s, "/parse/batch", "not an object")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func uploadRequest(t *testing.T, name, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/upload_dict", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadDictAndParse(t *testing.T) {
	s := newTestServer(t)

	rr := do(s, uploadRequest(t, "custom.xml", customXML))
	if rr.Code != http.StatusOK {
		t.Fatalf("upload: status %d body=%s", rr.Code, rr.Body.String())
	}
	up := decodeObject(t, rr)
	if up["ok"] != true || up["filename"] != "custom.xml" {
		t.Fatalf("unexpected upload response: %#v", up)
	}

	rr = postJSON(s, "/parse?dict_name=custom.xml", map[string]string{"raw": customMsg})
	if rr.Code != http.StatusOK {
		t.Fatalf("parse: status %d body=%s", rr.Code, rr.Body.String())
	}
	field := decodeObject(t, rr)["parsed"].(map[string]any)["9999"].(map[string]any)
	if field["name"] != "CustomTag" || field["value"] != "HELLO" {
		t.Fatalf("unexpected field: %#v", field)
	}
	if enum, ok := field["enum"]; !ok || enum != nil {
		t.Fatalf("expected enum to be null, got %#v (present=%v)", enum, ok)
	}

	rr = do(s, httptest.NewRequest(http.MethodGet, "/dicts", nil))
	if !strings.Contains(rr.Body.String(), `"custom.xml"`) {
		t.Fatalf("expected custom.xml listed: %s", rr.Body.String())
	}
}

func TestUploadDictRejected(t *testing.T) {
	s := newTestServer(t)

	rr := do(s, uploadRequest(t, "bad.xml", `<fix><fields><field name="x"/></fields></fix>`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed dictionary, got %d", rr.Code)
	}
	rr = do(s, uploadRequest(t, "notes.txt", "x"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad name, got %d", rr.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload_dict", strings.NewReader(""))
	if rr := do(s, req); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without file, got %d", rr.Code)
	}
}

func TestParseUnknownDictionary(t *testing.T) {
	s := newTestServer(t)
	rr := postJSON(s, "/parse?dict_name=nope.xml", map[string]string{"raw": newOrder})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	rr = postJSON(s, "/parse?dict_name=../x.xml", map[string]string{"raw": newOrder})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestUIRoundTrip(t *testing.T) {
	s := newTestServer(t)

	rr := do(s, httptest.NewRequest(http.MethodGet, "/ui", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "<form") {
		t.Fatalf("ui get: status %d", rr.Code)
	}

	form := url.Values{"raw": {newOrder}}
	req := httptest.NewRequest(http.MethodPost, "/ui", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = do(s, req)
	body := rr.Body.String()
	if rr.Code != http.StatusOK || !strings.Contains(body, "BUY 100 @ 10.5") {
		t.Fatalf("ui post: status %d body=%s", rr.Code, body)
	}
	if !strings.Contains(body, "Tag35(35) = D") {
		t.Fatalf("expected detail block in ui: %s", body)
	}
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/", "/health", "/ready", "/metrics"} {
		rr := do(s, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rr.Code)
		}
	}
}

func TestUploadRequiresToken(t *testing.T) {
	testlog.Start(t)
	s := Appear(Options{
		Name:       "fixlens-test",
		Store:      dicts.NewStore(t.TempDir()),
		UploadAuth: auth.StaticToken{Token: "s3cret"},
	})
	s.RegisterRoutes()

	if rr := do(s, uploadRequest(t, "custom.xml", customXML)); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
	req := uploadRequest(t, "custom.xml", customXML)
	req.Header.Set("Authorization", "Bearer s3cret")
	if rr := do(s, req); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d body=%s", rr.Code, rr.Body.String())
	}
}

type stalledSink struct {
	calls atomic.Int32
}

func (s *stalledSink) Name() string { return "stalled" }
func (s *stalledSink) Send(ctx context.Context, _ export.Event) error {
	s.calls.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestBatchExportSharesOneDeadline(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	sink := &stalledSink{}
	s := Appear(Options{
		Name:         "fixlens-test",
		Exporter:     export.NewDispatcher(true, sink),
		ExportBudget: 50 * time.Millisecond,
	})
	s.RegisterRoutes()

	raws := make([]string, 20)
	for i := range raws {
		raws[i] = newOrder
	}
	start := time.Now()
	rr := postJSON(s, "/parse/batch", map[string][]string{"raws": raws})
	elapsed := time.Since(start)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var list []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil || len(list) != len(raws) {
		t.Fatalf("expected %d results, err=%v", len(raws), err)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("batch held for %v behind a stalled sink", elapsed)
	}
	if got := sink.calls.Load(); got != 1 {
		t.Fatalf("expected the stalled sink to be tried once, got %d", got)
	}
}
