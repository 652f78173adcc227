// Package server exposes the HTTP surface: invitation management, the
// acceptance entry point, the client directory, and the job queue. Guard
// redirects become 303 responses; service errors become JSON bodies.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/huemul/tablero/internal/guard"
	"github.com/huemul/tablero/internal/invitations"
	"github.com/huemul/tablero/internal/jobs"
	"github.com/huemul/tablero/internal/organizations"
	"github.com/huemul/tablero/internal/provision"
)

// Server holds the wired services behind the HTTP handlers.
type Server struct {
	guard         *guard.Guard
	invitations   *invitations.Service
	provisioner   *provision.Provisioner
	organizations *organizations.Service
	queue         *jobs.Queue
}

// New creates the server.
func New(g *guard.Guard, invs *invitations.Service, prov *provision.Provisioner, orgs *organizations.Service, queue *jobs.Queue) *Server {
	return &Server{
		guard:         g,
		invitations:   invs,
		provisioner:   prov,
		organizations: orgs,
		queue:         queue,
	}
}

// Routes registers all handlers on a mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/invitations", s.handleCreateInvitation)
	mux.HandleFunc("GET /api/invitations", s.handleListInvitations)
	mux.HandleFunc("POST /api/invitations/client", s.handleInviteClient)

	// Both acceptance URL shapes resolve here.
	mux.HandleFunc("GET /invitations/{token}", s.handleResolveInvitation)
	mux.HandleFunc("GET /invitations", s.handleResolveInvitation)
	mux.HandleFunc("POST /invitations/accept", s.handleAcceptInvitation)

	mux.HandleFunc("GET /api/clients", s.handleListClients)

	mux.HandleFunc("POST /api/projects/{projectID}/jobs", s.handleEnqueueJob)
	mux.HandleFunc("GET /api/projects/{projectID}/jobs/{jobID}", s.handleJobStatus)

	return mux
}

// respondError translates an error into HTTP. Guard redirects are control
// flow and become 303s; everything else maps onto a status and a JSON body.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	if redirect, ok := guard.AsRedirect(err); ok {
		http.Redirect(w, r, redirect.Location, http.StatusSeeOther)
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
