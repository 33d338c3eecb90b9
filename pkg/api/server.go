// Package api bicis REST API
//
// @title           bicis REST API
// @version         1.0.0
// @description     Rent and return bikes across a fixed set of stations.
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"
)

const swaggerUI = `<!DOCTYPE html>
<html>
<head>
	 <title>bicis API Documentation</title>
	 <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui.css" />
</head>
<body>
	 <div id="swagger-ui"></div>
	 <script src="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui-bundle.js"></script>
	 <script>
	   window.onload = function() {
	     SwaggerUIBundle({
	       url: '/swagger/swagger.json',
	       dom_id: '#swagger-ui',
	       presets: [
	         SwaggerUIBundle.presets.apis,
	         SwaggerUIBundle.presets.standalone
	       ]
	     });
	   };
	 </script>
</body>
</html>`

// Server holds the API server state
type Server struct {
	service  RentalService
	history  History
	config   ServerConfig
	metrics  *Metrics
	gatherer prometheus.Gatherer
}

// NewServer creates a new API server. history may be nil when the journal is disabled.
func NewServer(service RentalService, history History, config ServerConfig, metrics *Metrics) *Server {
	return &Server{
		service:  service,
		history:  history,
		config:   config,
		metrics:  metrics,
		gatherer: prometheus.DefaultGatherer,
	}
}

// Routes builds the HTTP handler with all routes configured
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	if s.config.Verbose {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireAPIKey(s.config.APIKey, s.metrics))

		r.Get("/health", s.metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		r.Get("/stations", s.metrics.InstrumentHandler("GET", "/api/v1/stations", s.handleStations))
		r.Get("/bikes", s.metrics.InstrumentHandler("GET", "/api/v1/bikes", s.handleBikes))
		r.Get("/clients/{client}/bikes",
			s.metrics.InstrumentHandler("GET", "/api/v1/clients/{client}/bikes", s.handleClientBikes))

		r.Post("/rentals", s.metrics.InstrumentHandler("POST", "/api/v1/rentals", s.handleRent))
		r.Post("/returns", s.metrics.InstrumentHandler("POST", "/api/v1/returns", s.handleReturn))

		// Diagnostics
		r.Get("/check", s.metrics.InstrumentHandler("GET", "/api/v1/check", s.handleCheck))
		r.Get("/history", s.metrics.InstrumentHandler("GET", "/api/v1/history", s.handleHistory))
	})

	// Swagger documentation (unprotected)
	r.Get("/swagger/*", s.handleSwagger)

	return r
}

func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/swagger/", "/swagger/index.html":
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerUI))
	case "/swagger/swagger.json":
		doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
		if err != nil {
			log.Printf("api: failed to render swagger doc: %v", err)
			http.Error(w, "Failed to generate Swagger documentation", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	default:
		http.NotFound(w, r)
	}
}

// StartServer serves the API until ctx is cancelled, then shuts down gracefully
func StartServer(ctx context.Context, service RentalService, history History, config ServerConfig) error {
	SwaggerInfo.Host = fmt.Sprintf("localhost:%d", config.Port)

	metrics := NewMetrics(prometheus.DefaultRegisterer)
	server := NewServer(service, history, config, metrics)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Bind, config.Port),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting bicis REST API server on %s", httpServer.Addr)
		log.Printf("Metrics available at: http://%s/metrics", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Printf("Shutting down bicis REST API server")
		return httpServer.Shutdown(shutdownCtx)
	}
}

// SetGatherer replaces the registry served on /metrics
func (s *Server) SetGatherer(g prometheus.Gatherer) {
	s.gatherer = g
}
