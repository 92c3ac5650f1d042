package otp

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
	r.HandleFunc("/otp/send", h.handleSend).Methods(http.MethodPost)
	r.HandleFunc("/otp/verify", h.handleVerify).Methods(http.MethodPost)
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var req models.SendOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteJSON(w, apierrors.WithMessage(apierrors.ErrValidation, "invalid payload"))
		return
	}
	if req.Mobile == "" || req.ElectionID == "" {
		apierrors.WriteJSON(w, apierrors.WithMessage(apierrors.ErrValidation, "mobile and election_id are required"))
		return
	}

	resp, err := h.service.RequestOtp(r.Context(), req.Mobile, req.ElectionID)
	if err != nil {
		logger.Log.WithError(err).WithField("election_id", req.ElectionID).Warn("otp send rejected")
		apierrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteJSON(w, apierrors.WithMessage(apierrors.ErrValidation, "invalid payload"))
		return
	}
	if req.Mobile == "" || req.Code == "" {
		apierrors.WriteJSON(w, apierrors.WithMessage(apierrors.ErrValidation, "mobile and code are required"))
		return
	}

	resp, err := h.service.VerifyOtp(r.Context(), req.Mobile, req.Code)
	if err != nil {
		logger.Log.WithError(err).Warn("otp verify rejected")
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
