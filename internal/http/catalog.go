package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/Clark-Hu/goodmovies/internal/catalog"
	"github.com/Clark-Hu/goodmovies/internal/upstream"
)

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "userId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	items, err := s.catalog.GetCatalog(r.Context(), userID)
	if err != nil {
		status, code, message := catalogErrorStatus(err)
		s.logger.Error("build catalog failed",
			zap.String("user_id", userID),
			zap.Int("status", status),
			zap.Error(err))
		s.respondError(w, status, code, message)
		return
	}
	s.respondJSON(w, http.StatusOK, items)
}

func catalogErrorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, catalog.ErrRatingsUnavailable) && errors.Is(err, upstream.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "No ratings found for user"
	case isTimeout(err):
		return http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", "Upstream service timed out"
	default:
		return http.StatusBadGateway, "UPSTREAM_ERROR", "Failed to build catalog"
	}
}

// isTimeout also catches client and transport timeouts, which do not always wrap context.DeadlineExceeded.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
