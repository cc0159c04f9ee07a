package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/StuartF303/sorcha/pkg/governance"
	"github.com/StuartF303/sorcha/pkg/ledger"
)

type governanceHandlers struct {
	deps Dependencies
}

func (h *governanceHandlers) getRoster(w http.ResponseWriter, r *http.Request) {
	registerID := chi.URLParam(r, "registerId")
	roster, err := governance.GetCurrentRoster(r.Context(), h.deps.Repo, registerID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

// proposalRequest carries a governance operation, the votes cast over it, and
// — for Add operations only — the attestation to record for the new member.
type proposalRequest struct {
	Operation   ledger.GovernanceOperation  `json:"operation"`
	Approvals   []ledger.ApprovalSignature  `json:"approvals"`
	Attestation *ledger.RegisterAttestation `json:"attestation,omitempty"`
}

// proposalResponse is the structured result of a proposal evaluation. Quorum
// not yet met is not an error: the client receives the quorum tally back and
// may resubmit once more approvals are collected. The resulting roster is
// only populated once quorum is met and the operation has been applied.
type proposalResponse struct {
	Quorum governance.QuorumResult       `json:"quorum"`
	Roster *ledger.RegisterControlRecord `json:"roster,omitempty"`
}

func (h *governanceHandlers) validateProposal(w http.ResponseWriter, r *http.Request) {
	registerID := chi.URLParam(r, "registerId")

	var req proposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	roster, err := governance.GetCurrentRoster(r.Context(), h.deps.Repo, registerID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	if err := governance.ValidateProposal(roster, req.Operation, time.Now()); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	quorum := governance.ValidateQuorum(roster, req.Operation, req.Approvals)
	if !quorum.IsQuorumMet {
		writeJSON(w, http.StatusOK, proposalResponse{Quorum: quorum})
		return
	}

	next, err := governance.ApplyOperation(roster.ControlRecord, req.Operation, req.Attestation)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, proposalResponse{Quorum: quorum, Roster: &next})
}
