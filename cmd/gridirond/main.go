// gridirond serves the prediction pipeline over HTTP: single-matchup
// predictions, full betting cards, stored history, and Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/spreadline/gridiron/pkg/logging"
	"github.com/spreadline/gridiron/pkg/metrics"
	"github.com/spreadline/gridiron/pkg/nfl/card"
	"github.com/spreadline/gridiron/pkg/nfl/game"
	"github.com/spreadline/gridiron/pkg/nfl/pbp"
	"github.com/spreadline/gridiron/pkg/store"
)

type server struct {
	log     *logrus.Logger
	dataset *pbp.Dataset
	builder *card.Builder
	metrics *metrics.PipelineMetrics
	store   *store.Store // nil when DB_PATH is unset
	bank    decimal.Decimal
}

type cardRequest struct {
	Week     int            `json:"week"`
	Bankroll *float64       `json:"bankroll,omitempty"`
	Matchups []matchupInput `json:"matchups"`
}

type matchupInput struct {
	Context game.MatchupContext `json:"context"`
	Line    game.MarketLine     `json:"line"`
}

type clvRequest struct {
	RecommendationID string  `json:"recommendation_id"`
	ClosingSpread    float64 `json:"closing_spread"`
}

func main() {
	log := logging.Init(os.Getenv("LOG_LEVEL"), os.Getenv("ENV") == "development")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ds, err := loadDataset(ctx)
	if err != nil {
		log.WithError(err).Fatal("Failed to load play-by-play data")
	}
	log.WithFields(logrus.Fields{"season": ds.Season, "plays": len(ds.Plays)}).Info("Dataset ready")

	pm := metrics.NewPipelineMetrics()
	pm.PlaysLoaded.WithLabelValues(strconv.Itoa(ds.Season)).Set(float64(len(ds.Plays)))

	s := &server{
		log:     log,
		dataset: ds,
		builder: card.NewBuilder(nil, nil, nil, nil, pm),
		metrics: pm,
		bank:    decimal.NewFromFloat(getEnvFloat("BANKROLL", 10000)),
	}

	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			log.WithError(err).Fatal("Failed to open store")
		}
		defer st.Close()
		s.store = st
	}

	srv := &http.Server{
		Addr:         ":" + getEnv("PORT", "8090"),
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Shutdown failed")
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Method("GET", "/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/predict", s.handlePredict)
		r.Post("/card", s.handleCard)
		r.Get("/predictions/recent", s.handleRecentPredictions)
		r.Post("/clv", s.handleCLV)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"season": s.dataset.Season,
		"plays":  len(s.dataset.Plays),
	})
}

func (s *server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var in matchupInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	c := s.builder.Build(s.dataset, 0, []card.Request{{Context: &in.Context, Line: &in.Line}}, s.bank)
	entry := c.Entries[0]
	if entry.Err != nil {
		writeError(w, http.StatusUnprocessableEntity, entry.ErrMessage)
		return
	}

	s.persistEntry(r.Context(), entry)
	writeJSON(w, http.StatusOK, entry)
}

func (s *server) handleCard(w http.ResponseWriter, r *http.Request) {
	var in cardRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(in.Matchups) == 0 {
		writeError(w, http.StatusBadRequest, "no matchups supplied")
		return
	}

	bank := s.bank
	if in.Bankroll != nil {
		bank = decimal.NewFromFloat(*in.Bankroll)
	}

	reqs := make([]card.Request, len(in.Matchups))
	for i := range in.Matchups {
		reqs[i] = card.Request{Context: &in.Matchups[i].Context, Line: &in.Matchups[i].Line}
	}

	c := s.builder.Build(s.dataset, in.Week, reqs, bank)
	for _, e := range c.Entries {
		s.persistEntry(r.Context(), e)
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *server) handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "no database configured")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	rows, err := s.store.RecentPredictions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *server) handleCLV(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "no database configured")
		return
	}
	var in clvRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.store.RecordClosingLine(r.Context(), in.RecommendationID, in.ClosingSpread); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (s *server) persistEntry(ctx context.Context, e card.Entry) {
	if s.store == nil || e.Err != nil {
		return
	}
	if err := s.store.SavePrediction(ctx, e.Prediction); err != nil {
		s.log.WithError(err).Warn("Failed to persist prediction")
	}
	if err := s.store.SaveRecommendation(ctx, e.Recommendation); err != nil {
		s.log.WithError(err).Warn("Failed to persist recommendation")
	}
}

func loadDataset(ctx context.Context) (*pbp.Dataset, error) {
	loader := pbp.NewLoader()
	if path := os.Getenv("PBP_FILE"); path != "" {
		return loader.LoadFile(path)
	}
	return loader.LoadSeason(ctx, getEnvInt("PBP_SEASON", 2025))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
