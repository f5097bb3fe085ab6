// Package service serves the contact manager over HTTP: HTML pages for people using a browser,
// a JSON API for scripts, and the operational endpoints /healthz and /metrics.
package service

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gitlab.com/dirk.krummacker/contact-manager/internal/importer"
	"gitlab.com/dirk.krummacker/contact-manager/internal/logging"
	"gitlab.com/dirk.krummacker/contact-manager/internal/metrics"
	"gitlab.com/dirk.krummacker/contact-manager/internal/model"
	"gitlab.com/dirk.krummacker/contact-manager/internal/store"
)

// Options configures a Service. Zero values are replaced by the defaults noted on each field.
type Options struct {
	// ContactsPerPage is the page size of contact lists (10).
	ContactsPerPage int
	// MaxUploadSize is the largest accepted import request in bytes (16 MiB).
	MaxUploadSize int64
	// MaxConcurrentImports is the number of imports that may run at the same time (2).
	MaxConcurrentImports int64
	// MaxImportWait is how long an import waits for a free slot (10s).
	MaxImportWait time.Duration
	// RequestLogging enables one log line per request.
	RequestLogging bool
	// SecretKey signs the notice cookie. A random key is used when empty, which is fine for a
	// single instance.
	SecretKey []byte
	// Registry receives the application metrics and is served on /metrics. A new registry is
	// used when nil.
	Registry *prometheus.Registry
	// Now returns the current time (model.Now).
	Now func() time.Time
}

// Service holds the dependencies of all HTTP handlers.
type Service struct {
	store    *store.Store
	importer *importer.Importer
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	uploads  *uploadLimiter
	notices  *noticeCodec
	opts     Options
}

// New creates the service on top of the store.
func New(s *store.Store, opts Options) *Service {
	if opts.ContactsPerPage <= 0 {
		opts.ContactsPerPage = 10
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = 16 << 20
	}
	if opts.MaxConcurrentImports <= 0 {
		opts.MaxConcurrentImports = 2
	}
	if opts.MaxImportWait <= 0 {
		opts.MaxImportWait = 10 * time.Second
	}
	if len(opts.SecretKey) == 0 {
		opts.SecretKey = make([]byte, 32)
		_, _ = rand.Read(opts.SecretKey)
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Now == nil {
		opts.Now = model.Now
	}
	m := metrics.New(opts.Registry)
	return &Service{
		store:    s,
		importer: importer.New(s, importer.WithMetrics(m), importer.WithClock(opts.Now)),
		metrics:  m,
		registry: opts.Registry,
		uploads:  newUploadLimiter(opts.MaxConcurrentImports, opts.MaxImportWait),
		notices:  &noticeCodec{key: opts.SecretKey},
		opts:     opts,
	}
}

// SetupHttpRouter initializes the router and registers all endpoints.
func (s *Service) SetupHttpRouter() *gin.Engine {
	router := gin.New()
	router.Use(requestID())
	if s.opts.RequestLogging {
		router.Use(requestLogger())
	} else {
		slog.Info("turning off HTTP request logging")
	}
	router.Use(gin.CustomRecovery(s.recovered))
	router.SetHTMLTemplate(templates)
	router.StaticFS("/static", staticFiles())

	router.GET("/", s.index)
	router.GET("/contacts", s.contactsList)
	router.GET("/contacts/add", s.addContactForm)
	router.POST("/contacts/add", s.addContact)
	router.GET("/contacts/:id", s.viewContact)
	router.GET("/contacts/:id/edit", s.editContactForm)
	router.POST("/contacts/:id/edit", s.editContact)
	router.POST("/contacts/:id/delete", s.deleteContact)
	router.GET("/import-export", s.importExportPage)
	router.POST("/import-export", s.importContacts)
	router.GET("/export", s.exportContacts)

	api := router.Group("/api")
	api.GET("/contacts", s.findContacts)
	api.POST("/contacts", s.createContact)
	api.GET("/contacts/:id", s.findContactByID)
	api.PUT("/contacts/:id", s.updateContactByID)
	api.DELETE("/contacts/:id", s.deleteContactByID)
	api.POST("/import", s.importContactsJSON)
	api.GET("/export", s.exportContactsJSON)

	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	router.NoRoute(s.notFound)
	return router
}

// health answers 200 as long as the database is reachable.
//
//	> curl http://localhost:8080/healthz
func (s *Service) health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		logging.FromContext(c.Request.Context()).Error("database not reachable", "error", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID returns the id path parameter, which must be a positive integer.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// parsePage returns the page URL parameter. Missing and unparsable values mean page 1.
func parsePage(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
