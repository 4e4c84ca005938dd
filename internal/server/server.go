package server

import (
	"embed"
	"html/template"
	"time"

	"github.com/danmuck/fixlens/internal/auth"
	"github.com/danmuck/fixlens/internal/dicts"
	"github.com/danmuck/fixlens/internal/export"
	"github.com/danmuck/fixlens/internal/observability"
	"github.com/danmuck/fixlens/internal/protocol/schema"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

const defaultMaxUpload = 4 << 20

// Options carries the collaborators a Server is built from.
type Options struct {
	Name        string
	Addr        string
	CorsOrigins []string
	// Store backs dict_name lookups and uploads. Nil disables both.
	Store *dicts.Store
	// Dictionary is used when a request names none. Nil decodes with synthesized names.
	Dictionary *schema.Dictionary
	Exporter   *export.Dispatcher
	MaxUpload  int64
	// ExportBudget bounds all exports of one request. Zero means export.DefaultTimeout.
	ExportBudget time.Duration
	// UploadAuth guards POST /upload_dict. Nil leaves uploads open.
	UploadAuth auth.Validator
}

// Server is the HTTP front of the decoder.
type Server struct {
	Name     string
	Addr     string
	Appeared time.Time

	router       *gin.Engine
	store        *dicts.Store
	dict         *schema.Dictionary
	exporter     *export.Dispatcher
	maxUpload    int64
	exportBudget time.Duration
	uploadAuth   auth.Validator
}

func Appear(opts Options) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(opts.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(opts.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Content-Encoding", "Accept"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	maxUpload := opts.MaxUpload
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	budget := opts.ExportBudget
	if budget <= 0 {
		budget = export.DefaultTimeout
	}
	dict := opts.Dictionary
	if dict == nil {
		dict = schema.New()
	}

	return &Server{
		Name:         opts.Name,
		Addr:         opts.Addr,
		Appeared:     time.Now(),
		router:       r,
		store:        opts.Store,
		dict:         dict,
		exporter:     opts.Exporter,
		maxUpload:    maxUpload,
		exportBudget: budget,
		uploadAuth:   opts.UploadAuth,
	}
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) Serve() error {
	s.RegisterRoutes()
	log.Info().
		Str("name", s.Name).
		Str("addr", s.Addr).
		Int("default_fields", s.dict.Len()).
		Bool("export", s.exporter.Enabled()).
		Msg("fixlens serving")
	return s.router.Run(s.Addr)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
