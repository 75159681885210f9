package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remotedesk/signal-service/internal/domain"
	"github.com/remotedesk/signal-service/internal/service"
)

type Handler struct {
	roomSvc *service.RoomService
}

func NewHandler(room *service.RoomService) *Handler {
	return &Handler{roomSvc: room}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/static/index.html", http.StatusTemporaryRedirect)
}

// GET /create-room?custom_room=
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	custom := r.URL.Query().Get("custom_room")

	room, err := h.roomSvc.CreateRoom(custom)
	if err != nil {
		if errors.Is(err, domain.ErrRoomConflict) {
			writeJSON(w, http.StatusConflict, ConflictResponse{
				Error:   "Room already exists",
				Message: fmt.Sprintf("Room '%s' is already in use. Please choose another ID.", custom),
			})
			return
		}
		slog.Error("handler.CreateRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, CreateRoomResponse{
		Room:        room,
		ClientURL:   "/static/client.html?room=" + room,
		OperatorURL: "/static/operator.html?room=" + room,
	})
}

// GET /check-room/{room}
func (h *Handler) CheckRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "room")

	st, err := h.roomSvc.CheckRoom(id)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, RoomMissingResponse{Exists: false, Message: "Room not found"})
			return
		}
		slog.Error("handler.CheckRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, RoomStatusResponse{
		Exists:      true,
		HasOperator: st.HasOperator && st.OperatorReady,
		HasClient:   st.HasClient,
	})
}
