package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"tabletop/internal/game"
	"tabletop/internal/service"
	"tabletop/internal/transport/rest/middleware"
)

// RoomHandler handles room endpoints
type RoomHandler struct {
	gameSvc *service.GameService
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(gameSvc *service.GameService) *RoomHandler {
	return &RoomHandler{gameSvc: gameSvc}
}

// List handles GET /v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms := h.gameSvc.ListRooms(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"rooms": rooms})
}

// Get handles GET /v1/rooms/{roomId}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	detail, err := h.gameSvc.GetRoom(r.Context(), roomID)
	if errors.Is(err, game.ErrRoomNotFound) || errors.Is(err, game.ErrRoomClosed) {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// Close handles DELETE /v1/rooms/{roomId}
func (h *RoomHandler) Close(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	if err := h.gameSvc.CloseRoom(r.Context(), roomID); err != nil {
		if errors.Is(err, game.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Str("room", roomID).Str("operator", middleware.GetOperatorID(r.Context())).Msg("room closed by operator")
	writeJSON(w, http.StatusOK, map[string]string{"status": "CLOSED"})
}

// Summary handles GET /v1/rooms/{roomId}/summary
func (h *RoomHandler) Summary(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	final, err := h.gameSvc.GetSummary(r.Context(), roomID)
	if errors.Is(err, service.ErrSummaryNotFound) {
		writeError(w, http.StatusNotFound, "summary not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"finalState": final})
}
