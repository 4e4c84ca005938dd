package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/fixlens/internal/auth"
	"github.com/danmuck/fixlens/internal/dicts"
	"github.com/danmuck/fixlens/internal/ingest"
	"github.com/danmuck/fixlens/internal/observability"
	"github.com/danmuck/fixlens/internal/protocol"
	"github.com/danmuck/fixlens/internal/protocol/schema"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	version         = "0.1.0"
	mimeMsgpack     = "application/msgpack"
	mimeMsgpackAlt  = "application/x-msgpack"
	dictNameParam   = "dict_name"
	uploadFileField = "file"
)

var errNoStore = errors.New("dictionary store not configured")

func (s *Server) RegisterRoutes() {
	r := s.router
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8",
			[]byte("<h3>FIX Parser</h3><p>Go to <a href='/ui'>/ui</a></p>"))
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.Name,
			"version": version,
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":              true,
			"dictionary_fields":  s.dict.Len(),
			"export_enabled":     s.exporter.Enabled(),
			"export_sinks":       s.exporter.Sinks(),
			"dictionary_storage": s.store != nil,
			"upload_auth":        s.uploadAuth != nil,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/parse", s.handleParse)
	r.POST("/parse/batch", s.handleParseBatch)
	r.GET("/ui", s.handleUI)
	r.POST("/ui", s.handleUI)
	if s.uploadAuth != nil {
		r.POST("/upload_dict", auth.RequireToken(s.uploadAuth), s.handleUpload)
	} else {
		r.POST("/upload_dict", s.handleUpload)
	}
	r.GET("/dicts", s.handleListDicts)
}

func (s *Server) handleParse(c *gin.Context) {
	dict, ok := s.requestDictionary(c)
	if !ok {
		return
	}
	body, err := ingest.ReadBody(c.Request.Body, c.GetHeader("Content-Encoding"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload, err := ingest.Classify(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no raw message found in request"})
		return
	}

	results := s.translateAll(c, payload.Raws(), dict)
	log.Debug().Str("kind", payload.Kind.String()).Int("messages", len(results)).Msg("parse")
	if len(results) == 1 {
		s.respond(c, http.StatusOK, results[0], results[0].Event())
		return
	}
	s.respondList(c, results)
}

type batchRequest struct {
	Raws []string `json:"raws"`
}

func (s *Server) handleParseBatch(c *gin.Context) {
	dict, ok := s.requestDictionary(c)
	if !ok {
		return
	}
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch body: " + err.Error()})
		return
	}
	s.respondList(c, s.translateAll(c, req.Raws, dict))
}

func (s *Server) translateAll(c *gin.Context, raws []string, dict *schema.Dictionary) []protocol.Translation {
	results := make([]protocol.Translation, 0, len(raws))
	diagnostics := 0
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.exportBudget)
	defer cancel()
	for _, raw := range raws {
		res := protocol.Decode(raw, dict)
		tr := protocol.Project(res)
		results = append(results, tr)
		diagnostics += len(res.Errors)

		kinds := make([]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			kinds = append(kinds, e.Kind.String())
		}
		msgType, _ := res.Fields.Get(protocol.TagMsgType)
		observability.RecordDecode(msgType.Value, kinds)

		if err := s.exporter.Export(ctx, tr.Event()); err != nil {
			_ = c.Error(err)
		}
	}
	c.Set(observability.KeyMessages, len(results))
	c.Set(observability.KeyDiagnostic, diagnostics)
	return results
}

// requestDictionary resolves ?dict_name= or falls back to the default dictionary.
// It writes the error response itself and reports false when the request must stop.
func (s *Server) requestDictionary(c *gin.Context) (*schema.Dictionary, bool) {
	name := strings.TrimSpace(c.Query(dictNameParam))
	if name == "" {
		return s.dict, true
	}
	c.Set(observability.KeyDictionary, name)
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errNoStore.Error()})
		return nil, false
	}
	dict, err := s.store.Get(name)
	switch {
	case err == nil:
		return dict, true
	case errors.Is(err, dicts.ErrUnknown):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, dicts.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error().Str("dictionary", name).Err(err).Msg("dictionary load failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
	return nil, false
}

func wantsMsgpack(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, mimeMsgpack) || strings.Contains(accept, mimeMsgpackAlt)
}

// respond writes v as JSON, or plain as msgpack when the client asks for it.
func (s *Server) respond(c *gin.Context, status int, v any, plain any) {
	if !wantsMsgpack(c) {
		c.JSON(status, v)
		return
	}
	data, err := msgpack.Marshal(plain)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(status, mimeMsgpack, data)
}

func (s *Server) respondList(c *gin.Context, results []protocol.Translation) {
	events := make([]map[string]any, 0, len(results))
	for _, tr := range results {
		events = append(events, tr.Event())
	}
	s.respond(c, http.StatusOK, results, events)
}

type uiData struct {
	Raw          string
	DictName     string
	Dictionaries []dicts.Info
	Result       *protocol.Translation
	FlatJSON     string
	Error        string
}

func (s *Server) handleUI(c *gin.Context) {
	data := uiData{}
	if s.store != nil {
		data.Dictionaries, _ = s.store.List()
	}
	if c.Request.Method == http.MethodPost {
		data.Raw = c.PostForm("raw")
		data.DictName = strings.TrimSpace(c.PostForm(dictNameParam))
		dict := s.dict
		if data.DictName != "" && s.store != nil {
			d, err := s.store.Get(data.DictName)
			if err != nil {
				data.Error = err.Error()
				c.HTML(http.StatusOK, "ui.html", data)
				return
			}
			dict = d
		}
		tr := s.translateAll(c, []string{data.Raw}, dict)[0]
		data.Raw = protocol.Display(data.Raw)
		data.Result = &tr
		if flat, err := json.MarshalIndent(tr.Flat, "", "  "); err == nil {
			data.FlatJSON = string(flat)
		}
	}
	c.HTML(http.StatusOK, "ui.html", data)
}

func (s *Server) handleUpload(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errNoStore.Error()})
		return
	}
	fh, err := c.FormFile(uploadFileField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing multipart field \"file\""})
		return
	}
	if fh.Size > s.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "dictionary too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.maxUpload+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if int64(len(data)) > s.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "dictionary too large"})
		return
	}

	dict, err := s.store.Save(fh.Filename, data)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, dicts.ErrInvalidName) || errors.Is(err, schema.ErrMalformedSchema) ||
			errors.Is(err, schema.ErrUnsupportedFormat) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "filename": fh.Filename, "fields": dict.Len()})
}

func (s *Server) handleListDicts(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"dictionaries": []dicts.Info{}})
		return
	}
	list, err := s.store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dictionaries": list})
}
