package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/StuartF303/sorcha/pkg/ledger"
	"github.com/StuartF303/sorcha/pkg/registration"
)

type registerHandlers struct {
	deps Dependencies
}

type initiateRequest struct {
	OwnerDID      ledger.DID   `json:"ownerDid"`
	InitialAdmins []ledger.DID `json:"initialAdmins"`
}

func (h *registerHandlers) initiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.OwnerDID == "" {
		writeError(w, http.StatusBadRequest, errors.New("ownerDid is required"))
		return
	}

	pending, err := h.deps.Orchestrator.Initiate(r.Context(), req.OwnerDID, req.InitialAdmins)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, pending)
}

type finalizeRequest struct {
	Signature []byte `json:"signature"`
	Algorithm string `json:"algorithm"`
}

func (h *registerHandlers) finalize(w http.ResponseWriter, r *http.Request) {
	registerID := chi.URLParam(r, "registerId")

	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	reg, err := h.deps.Orchestrator.Finalize(r.Context(), registerID, req.Signature, req.Algorithm)
	if err != nil {
		switch {
		case errors.Is(err, registration.ErrUnknownPending), errors.Is(err, registration.ErrPendingExpired):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, registration.ErrSignatureInvalid):
			writeError(w, http.StatusUnauthorized, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (h *registerHandlers) get(w http.ResponseWriter, r *http.Request) {
	registerID := chi.URLParam(r, "registerId")
	reg, err := h.deps.Repo.GetRegister(r.Context(), registerID)
	if err != nil {
		if errors.Is(err, ledger.ErrRegisterNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}
