package httpserver

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Clark-Hu/goodmovies/internal/domain"
	"github.com/Clark-Hu/goodmovies/internal/repository"
)

type ratingRequest struct {
	Rating int `json:"rating"`
}

type storedRatingResponse struct {
	UserID  string `json:"userId"`
	MovieID string `json:"movieId"`
	Rating  int    `json:"rating"`
}

func (s *Server) handleGetUserRatings(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "userId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	ratings, err := s.repo.Ratings.ListByUser(r.Context(), userID)
	if err != nil {
		s.logger.Error("list ratings failed", zap.String("user_id", userID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch ratings")
		return
	}
	s.respondJSON(w, http.StatusOK, domain.UserRating{UserID: userID, UserRating: ratings})
}

func (s *Server) handlePutRating(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeWrite(w, r) {
		return
	}
	userID, err := pathParam(r, "userId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	movieID, err := pathParam(r, "movieId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req ratingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if req.Rating < domain.MinRating || req.Rating > domain.MaxRating {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "rating must be an integer between 1 and 5")
		return
	}

	rating, inserted, err := s.repo.Ratings.Upsert(r.Context(), repository.RatingUpsertParams{
		UserID:  userID,
		MovieID: movieID,
		Value:   req.Rating,
	})
	if err != nil {
		s.logger.Error("upsert rating failed", zap.String("user_id", userID), zap.String("movie_id", movieID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store rating")
		return
	}

	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, storedRatingResponse{
		UserID:  rating.UserID,
		MovieID: rating.MovieID,
		Rating:  rating.Value,
	})
}

func (s *Server) handleDeleteRating(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeWrite(w, r) {
		return
	}
	userID, err := pathParam(r, "userId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	movieID, err := pathParam(r, "movieId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	if err := s.repo.Ratings.Delete(r.Context(), userID, movieID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Error("delete rating failed", zap.String("user_id", userID), zap.String("movie_id", movieID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete rating")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
