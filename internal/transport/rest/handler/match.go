package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"tabletop/internal/service"
)

const maxMatchHistory = 50

// MatchHandler handles archived match endpoints
type MatchHandler struct {
	gameSvc *service.GameService
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(gameSvc *service.GameService) *MatchHandler {
	return &MatchHandler{gameSvc: gameSvc}
}

// ByUser handles GET /v1/matches/user/{userId}
func (h *MatchHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	limit := int64(maxMatchHistory)
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	matches, err := h.gameSvc.MatchesForUser(r.Context(), userID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch match history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}
