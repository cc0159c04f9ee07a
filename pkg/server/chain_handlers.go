package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/StuartF303/sorcha/pkg/chainaudit"
	"github.com/StuartF303/sorcha/pkg/ledger"
)

type chainHandlers struct {
	deps Dependencies
}

func (h *chainHandlers) audit(w http.ResponseWriter, r *http.Request) {
	registerID := chi.URLParam(r, "registerId")
	result, err := chainaudit.ValidateCompleteChain(r.Context(), h.deps.Repo, registerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	status := http.StatusOK
	if !result.IsValid {
		status = http.StatusConflict
	}
	writeJSON(w, status, result)
}

func (h *chainHandlers) latestDocket(w http.ResponseWriter, r *http.Request) {
	registerID := chi.URLParam(r, "registerId")
	docket, err := h.deps.Repo.GetLatestDocket(r.Context(), registerID)
	if err != nil {
		if errors.Is(err, ledger.ErrDocketNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, docket)
}
