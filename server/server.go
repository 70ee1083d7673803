package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alwedo/jobscraper/jobber"
	"github.com/alwedo/jobscraper/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultAddr = ":80"
	rootMessage = "Job Scraper API is running!"
	maxBodySize = 1 << 20
)

type server struct {
	logger *slog.Logger
	jobber *jobber.Jobber
}

func New(l *slog.Logger, j *jobber.Jobber, addr string) *http.Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &server{logger: l, jobber: j}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(metrics.HTTPMiddleware)
	r.Use(s.logRequests)

	r.Get("/", s.root())
	r.Post("/scrape-jobs", s.scrapeJobs())
	r.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *server) root() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.respondJSON(w, http.StatusOK, map[string]string{"message": rootMessage})
	}
}

func (s *server) scrapeJobs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jobber.Request
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.logger.Info("invalid request body", slog.String("error", err.Error()))
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := s.jobber.ScrapeJobs(r.Context(), &req)
		if err != nil {
			var ise *jobber.InvalidSiteError
			if errors.As(err, &ise) {
				// Kept as a 500 for compatibility with existing clients.
				s.logger.Info("invalid site requested", slog.String("site", ise.Site))
			}
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, res)
	}
}

func (s *server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to write response", slog.String("error", err.Error()))
	}
}

func (s *server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
		)
	})
}
