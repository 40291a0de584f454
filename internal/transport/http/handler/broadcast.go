package handler

import (
	"encoding/json"
	"net/http"

	"github.com/medical-records-api/internal/pkg/validate"
	"github.com/medical-records-api/internal/realtime"
)

// BroadcastHandler lets administrators push an announcement to every
// connected client on the shared topic.
type BroadcastHandler struct {
	publisher *realtime.Publisher
}

func NewBroadcastHandler(publisher *realtime.Publisher) *BroadcastHandler {
	return &BroadcastHandler{publisher: publisher}
}

func (h *BroadcastHandler) Announce(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title" validate:"required"`
		Message string `json:"message" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.publisher.Broadcast(req.Title, req.Message, "ANNOUNCEMENT")
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "broadcast sent"})
}
