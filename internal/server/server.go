// Package server exposes the read API over the ingested universe.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/prachitbhike/insurintel-sub000/internal/model"
	"github.com/prachitbhike/insurintel-sub000/internal/store"
)

// Scorer is the scoring entry point the API calls. *pipeline.Pipeline
// satisfies it.
type Scorer interface {
	ScoreSector(ctx context.Context, sector model.Sector) ([]model.ScoreResult, error)
}

// Server routes API requests to the store and the scorer.
type Server struct {
	store  store.Store
	scorer Scorer
	router chi.Router
	log    *zap.Logger
}

// New builds the router with its middleware stack.
func New(st store.Store, scorer Scorer) *Server {
	s := &Server{
		store:  st,
		scorer: scorer,
		log:    zap.L().With(zap.String("component", "server")),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/companies", s.handleCompanies)
		r.Get("/companies/{cik}/observations", s.handleObservations)
		r.Get("/scores", s.handleScores)
		r.Get("/sectors/{sector}/stats", s.handleSectorStats)
	})

	s.router = r
	return s
}

// Handler returns the http handler for mounting or testing.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.store.ListCompanies(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if sector := r.URL.Query().Get("sector"); sector != "" {
		parsed, err := model.ParseSector(sector)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		filtered := companies[:0]
		for _, c := range companies {
			if c.Sector == parsed {
				filtered = append(filtered, c)
			}
		}
		companies = filtered
	}
	s.writeJSON(w, http.StatusOK, companies)
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	cik := chi.URLParam(r, "cik")
	companies, err := s.store.ListCompanies(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	var company *model.Company
	for i := range companies {
		if companies[i].CIK == cik {
			company = &companies[i]
			break
		}
	}
	if company == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown cik"})
		return
	}

	filter := store.ObservationFilter{
		CompanyID: company.ID,
		Metric:    r.URL.Query().Get("metric"),
	}
	if pt := r.URL.Query().Get("period_type"); pt != "" {
		filter.PeriodType = model.PeriodType(pt)
	}

	obs, err := s.store.ListObservations(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if obs == nil {
		obs = []model.MetricObservation{}
	}
	s.writeJSON(w, http.StatusOK, obs)
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	sector, err := model.ParseSector(r.URL.Query().Get("sector"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	results, err := s.scorer.ScoreSector(r.Context(), sector)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if results == nil {
		results = []model.ScoreResult{}
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSectorStats(w http.ResponseWriter, r *http.Request) {
	sector, err := model.ParseSector(chi.URLParam(r, "sector"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	stats, err := s.store.SectorStats(r.Context(), sector)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if stats == nil {
		stats = []model.SectorStats{}
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		s.log.Error("request failed", zap.Error(err))
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
