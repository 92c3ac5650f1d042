package ballot

import (
	"encoding/json"
	"net/http"

	"github.com/campuspulse/platform/pkg/common/apierrors"
	"github.com/campuspulse/platform/pkg/common/logger"
	"github.com/campuspulse/platform/pkg/common/models"
	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/vote/cast", h.handleCast).Methods(http.MethodPost)
}

func (h *Handler) handleCast(w http.ResponseWriter, r *http.Request) {
	var req models.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteJSON(w, apierrors.WithMessage(apierrors.ErrValidation, "invalid payload"))
		return
	}
	if req.SessionToken == "" || req.Choice == "" {
		apierrors.WriteJSON(w, apierrors.WithMessage(apierrors.ErrValidation, "session_token and choice are required"))
		return
	}

	resp, err := h.service.CastVote(r.Context(), req.SessionToken, req.Choice)
	if err != nil {
		logger.Log.WithError(err).Warn("vote cast rejected")
		apierrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
