package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/huemul/tablero/internal/invitations"
	"github.com/huemul/tablero/internal/models"
	"github.com/huemul/tablero/internal/provision"
	"github.com/huemul/tablero/internal/store"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, invitations.ErrAlreadyRegistered),
		errors.Is(err, invitations.ErrDuplicatePending):
		return http.StatusConflict
	case errors.Is(err, invitations.ErrInvalidOrExpired),
		errors.Is(err, store.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, provision.ErrNoInvitationContext):
		return http.StatusUnauthorized
	case errors.Is(err, provision.ErrProvisioningConflict):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type createInvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req createInvitationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	created, err := s.invitations.Create(r.Context(), req.Email, models.Role(req.Role))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"invitation": invitationView(created.Invitation),
		"accept_url": created.AcceptURL,
	})
}

func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	invs, err := s.invitations.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	views := make([]map[string]any, 0, len(invs))
	for _, inv := range invs {
		views = append(views, invitationView(inv))
	}

	writeJSON(w, http.StatusOK, map[string]any{"invitations": views})
}

type inviteClientRequest struct {
	Email       string `json:"email"`
	CompanyName string `json:"company_name"`
}

func (s *Server) handleInviteClient(w http.ResponseWriter, r *http.Request) {
	var req inviteClientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	created, err := s.invitations.InviteClient(r.Context(), req.Email, req.CompanyName)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"invitation": invitationView(created.Invitation),
		"accept_url": created.AcceptURL,
	})
}

// handleResolveInvitation serves both acceptance URL shapes: the token in
// the path (random tokens) or in the query string (provider identities).
func (s *Server) handleResolveInvitation(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing token"})
		return
	}

	inv, err := s.invitations.GetByToken(r.Context(), token)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"invitation": invitationView(inv)})
}

type acceptRequest struct {
	FullName      string `json:"full_name"`
	CompanyName   string `json:"company_name"`
	RUT           string `json:"rut"`
	Country       string `json:"country"`
	EmployeeCount int    `json:"employee_count"`
	Password      string `json:"password"`
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	outcome, err := s.provisioner.Accept(r.Context(), provision.Registration{
		FullName:      req.FullName,
		CompanyName:   req.CompanyName,
		RUT:           req.RUT,
		Country:       req.Country,
		EmployeeCount: req.EmployeeCount,
		Password:      req.Password,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"already_provisioned": outcome.AlreadyProvisioned,
		"destination":         outcome.Destination,
	})
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.organizations.GetAllClients(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	views := make([]map[string]any, 0, len(orgs))
	for _, org := range orgs {
		views = append(views, map[string]any{
			"org_id":         org.OrgID,
			"name":           org.Name,
			"rut":            org.RUT,
			"country":        org.Country,
			"employee_count": org.EmployeeCount,
			"status":         org.Status,
			"created_at":     org.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"clients": views})
}

type enqueueJobRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (s *Server) handleEnqueueJob(w http.ResponseWriter, r *http.Request) {
	// The queue writes through the elevated store, so the caller's own
	// authorization has to be established here first.
	if _, _, err := s.guard.RequireProfile(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}

	projectID, err := uuid.Parse(r.PathValue("projectID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid project id"})
		return
	}

	var req enqueueJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	jobID, err := s.queue.Enqueue(r.Context(), req.Type, req.Payload, projectID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": jobID})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if _, _, err := s.guard.RequireProfile(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}

	projectID, err := uuid.Parse(r.PathValue("projectID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid project id"})
		return
	}

	jobID, err := uuid.Parse(r.PathValue("jobID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid job id"})
		return
	}

	job, err := s.queue.GetStatus(r.Context(), jobID, projectID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":       job.JobID,
		"type":         job.Type,
		"status":       job.Status,
		"attempts":     job.Attempts,
		"max_attempts": job.MaxAttempts,
		"created_at":   job.CreatedAt,
		"started_at":   job.StartedAt,
		"completed_at": job.CompletedAt,
	})
}

func invitationView(inv *models.Invitation) map[string]any {
	return map[string]any{
		"invitation_id":   inv.ID,
		"email":           inv.Email,
		"organization_id": inv.OrganizationID,
		"role":            inv.Role,
		"status":          inv.Status,
		"expires_at":      inv.ExpiresAt,
		"created_at":      inv.CreatedAt,
	}
}
