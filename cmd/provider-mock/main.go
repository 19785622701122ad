// Command provider-mock serves fixture data on the ratings and movie info routes
// so the catalog service can run without databases.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Clark-Hu/goodmovies/internal/domain"
	"github.com/Clark-Hu/goodmovies/internal/logging"
)

type fixture struct {
	Ratings map[string][]domain.Rating `json:"ratings"`
	Movies  map[string]domain.Movie    `json:"movies"`
}

func main() {
	var (
		port     = flag.String("port", "9099", "port to listen on")
		data     = flag.String("data", "testdata/provider-mock.json", "path to fixture file")
		logLevel = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logger, err := logging.New("provider-mock", *logLevel)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	file, err := os.ReadFile(*data)
	if err != nil {
		logger.Fatal("read fixture", zap.Error(err))
	}
	var payload fixture
	if err := json.Unmarshal(file, &payload); err != nil {
		logger.Fatal("parse fixture", zap.Error(err))
	}
	logger.Info("loaded fixture", zap.Int("users", len(payload.Ratings)), zap.Int("movies", len(payload.Movies)))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/ratingsdata/user/{userId}", func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userId")
		ratings, ok := payload.Ratings[userID]
		if !ok {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		if ratings == nil {
			ratings = []domain.Rating{}
		}
		encode(w, logger, domain.UserRating{UserID: userID, UserRating: ratings})
	})
	r.Get("/movies/{movieId}", func(w http.ResponseWriter, r *http.Request) {
		movie, ok := payload.Movies[chi.URLParam(r, "movieId")]
		if !ok {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		encode(w, logger, movie)
	})

	addr := ":" + *port
	logger.Info("provider mock listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func encode(w http.ResponseWriter, logger *zap.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encode response", zap.Error(err))
	}
}
