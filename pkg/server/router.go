// Package server exposes Sorcha's register, governance, and chain-audit
// operations over HTTP using go-chi for routing.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/StuartF303/sorcha/pkg/did"
	"github.com/StuartF303/sorcha/pkg/ledger"
	"github.com/StuartF303/sorcha/pkg/registration"
	"github.com/StuartF303/sorcha/pkg/validator"
)

// Dependencies bundles the collaborators the HTTP handlers dispatch to.
// None of them are owned by the server — it is a thin transport layer over
// pkg/registration, pkg/governance, pkg/validator, and pkg/chainaudit.
type Dependencies struct {
	Repo         ledger.RegisterRepository
	Orchestrator *registration.Orchestrator
	Resolver     *did.Resolver
	Mempool      *validator.Mempool
	Logger       *log.Logger
}

// NewRouter builds the full chi.Router for the Sorcha HTTP API.
func NewRouter(deps Dependencies) chi.Router {
	if deps.Logger == nil {
		deps.Logger = log.New(log.Writer(), "[server] ", log.LstdFlags)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", handleHealth)

	r.Route("/api/v1/registers", func(r chi.Router) {
		h := &registerHandlers{deps: deps}
		r.Post("/", h.initiate)
		r.Post("/{registerId}/finalize", h.finalize)
		r.Get("/{registerId}", h.get)
	})

	r.Route("/api/v1/governance", func(r chi.Router) {
		h := &governanceHandlers{deps: deps}
		r.Get("/{registerId}/roster", h.getRoster)
		r.Post("/{registerId}/proposals", h.validateProposal)
	})

	r.Route("/api/v1/chain", func(r chi.Router) {
		h := &chainHandlers{deps: deps}
		r.Get("/{registerId}/audit", h.audit)
		r.Get("/{registerId}/dockets/latest", h.latestDocket)
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
