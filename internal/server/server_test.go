package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/huemul/tablero/internal/guard"
	"github.com/huemul/tablero/internal/identity"
	"github.com/huemul/tablero/internal/invitations"
	"github.com/huemul/tablero/internal/jobs"
	"github.com/huemul/tablero/internal/models"
	"github.com/huemul/tablero/internal/organizations"
	"github.com/huemul/tablero/internal/provision"
	"github.com/huemul/tablero/internal/store"
	memorystore "github.com/huemul/tablero/internal/store/memory"
)

type noopNotifier struct{}

func (noopNotifier) Fire(ctx context.Context) {}

type testServer struct {
	srv      *Server
	mux      *http.ServeMux
	provider *identity.MemoryProvider
	profiles *memorystore.ProfileStore
	orgs     *memorystore.OrganizationStore
	jobs     *memorystore.JobStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	profiles := memorystore.NewProfileStore()
	orgs := memorystore.NewOrganizationStore()
	invs := memorystore.NewInvitationStore()
	provider := identity.NewMemoryProvider([]byte("test-secret-key-min-32-bytes-long"))
	g := guard.NewWithRetry(profiles, provider, guard.RetryPolicy{MaxTries: 2, Interval: time.Millisecond})

	jobStore := memorystore.NewJobStore()
	elevated := &store.Elevated{
		Organizations: orgs,
		Profiles:      profiles,
		Memberships:   memorystore.NewMembershipStore(),
		Jobs:          jobStore,
	}

	invitationSvc := invitations.NewService(invs, profiles, provider, g, "https://dashboard.example.com")
	provisioner := provision.New(provider, profiles, invs, elevated)
	orgSvc := organizations.NewService(orgs, g)
	queue := jobs.New(elevated.Jobs, noopNotifier{})

	srv := New(g, invitationSvc, provisioner, orgSvc, queue)
	return &testServer{
		srv:      srv,
		mux:      srv.Routes(),
		provider: provider,
		profiles: profiles,
		orgs:     orgs,
		jobs:     jobStore,
	}
}

// actAs seeds a profile and returns the identity to authenticate requests as.
func (ts *testServer) actAs(t *testing.T, role models.Role, orgID *uuid.UUID) *models.Identity {
	t.Helper()

	id := &models.Identity{ID: uuid.Must(uuid.NewV7()), Email: uuid.NewString() + "@example.com"}
	ts.provider.AddIdentity(id)
	require.NoError(t, ts.profiles.Create(context.Background(), &models.Profile{
		ID:             id.ID,
		OrganizationID: orgID,
		Email:          id.Email,
		Role:           role,
	}))
	return id
}

func (ts *testServer) request(t *testing.T, id *models.Identity, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	if id != nil {
		req = req.WithContext(guard.WithIdentity(req.Context(), id))
	}

	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestServer_Invitations(t *testing.T) {
	t.Run("create returns the acceptance link", func(t *testing.T) {
		ts := newTestServer(t)
		orgID := uuid.Must(uuid.NewV7())
		admin := ts.actAs(t, models.RoleOrgAdmin, &orgID)

		rec := ts.request(t, admin, http.MethodPost, "/api/invitations", map[string]string{
			"email": "new@example.com",
			"role":  "org_member",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		body := decodeBody(t, rec)
		require.Contains(t, body["accept_url"], "https://dashboard.example.com/invitations/")
	})

	t.Run("unauthenticated create redirects to sign-in", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.request(t, nil, http.MethodPost, "/api/invitations", map[string]string{
			"email": "new@example.com",
			"role":  "org_member",
		})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/signin", rec.Header().Get("Location"))
	})

	t.Run("duplicate pending invitation conflicts", func(t *testing.T) {
		ts := newTestServer(t)
		orgID := uuid.Must(uuid.NewV7())
		admin := ts.actAs(t, models.RoleOrgAdmin, &orgID)

		payload := map[string]string{"email": "new@example.com", "role": "org_member"}
		require.Equal(t, http.StatusCreated, ts.request(t, admin, http.MethodPost, "/api/invitations", payload).Code)
		require.Equal(t, http.StatusConflict, ts.request(t, admin, http.MethodPost, "/api/invitations", payload).Code)
	})

	t.Run("resolve serves both URL shapes", func(t *testing.T) {
		ts := newTestServer(t)
		orgID := uuid.Must(uuid.NewV7())
		admin := ts.actAs(t, models.RoleOrgAdmin, &orgID)
		master := ts.actAs(t, models.RoleMasterAdmin, nil)

		created := decodeBody(t, ts.request(t, admin, http.MethodPost, "/api/invitations", map[string]string{
			"email": "new@example.com",
			"role":  "org_member",
		}))
		clientInvite := decodeBody(t, ts.request(t, master, http.MethodPost, "/api/invitations/client", map[string]string{
			"email":        "owner@client.example",
			"company_name": "Cliente Ltda",
		}))

		tokenPath := created["accept_url"].(string)[len("https://dashboard.example.com"):]
		require.Equal(t, http.StatusOK, ts.request(t, nil, http.MethodGet, tokenPath, nil).Code)

		queryPath := clientInvite["accept_url"].(string)[len("https://dashboard.example.com"):]
		require.Equal(t, http.StatusOK, ts.request(t, nil, http.MethodGet, queryPath, nil).Code)
	})

	t.Run("unknown token reads as not found", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.request(t, nil, http.MethodGet, "/invitations/no-such-token", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_Accept(t *testing.T) {
	t.Run("without identity is unauthorized", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.request(t, nil, http.MethodPost, "/invitations/accept", map[string]any{
			"company_name": "Andina SpA",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("provisions and reports the destination", func(t *testing.T) {
		ts := newTestServer(t)

		id := &models.Identity{ID: uuid.Must(uuid.NewV7()), Email: "owner@andina.example"}
		ts.provider.AddIdentity(id)

		rec := ts.request(t, id, http.MethodPost, "/invitations/accept", map[string]any{
			"full_name":      "Maria Gonzalez",
			"company_name":   "Andina SpA",
			"rut":            "76.123.456-7",
			"country":        "CL",
			"employee_count": 25,
			"password":       "s3cret-password",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		require.Equal(t, false, body["already_provisioned"])
		require.Equal(t, "/dashboard", body["destination"])
	})
}

func TestServer_Clients(t *testing.T) {
	ts := newTestServer(t)
	master := ts.actAs(t, models.RoleMasterAdmin, nil)

	require.NoError(t, ts.orgs.Create(context.Background(), &models.Organization{
		OrgID:     uuid.Must(uuid.NewV7()),
		Name:      "Cliente Ltda",
		Status:    models.OrgStatusActive,
		CreatedAt: time.Now(),
	}))

	t.Run("master admin lists clients", func(t *testing.T) {
		rec := ts.request(t, master, http.MethodGet, "/api/clients", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		require.Len(t, body["clients"], 1)
	})

	t.Run("org member is redirected home", func(t *testing.T) {
		orgID := uuid.Must(uuid.NewV7())
		member := ts.actAs(t, models.RoleOrgMember, &orgID)

		rec := ts.request(t, member, http.MethodGet, "/api/clients", nil)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/dashboard", rec.Header().Get("Location"))
	})
}

func TestServer_Jobs(t *testing.T) {
	ts := newTestServer(t)
	projectID := uuid.Must(uuid.NewV7())
	orgID := uuid.Must(uuid.NewV7())
	member := ts.actAs(t, models.RoleOrgMember, &orgID)

	t.Run("enqueue accepts and returns the job id", func(t *testing.T) {
		rec := ts.request(t, member, http.MethodPost, "/api/projects/"+projectID.String()+"/jobs", map[string]any{
			"type":    "report_generation",
			"payload": map[string]string{"month": "2026-08"},
		})
		require.Equal(t, http.StatusAccepted, rec.Code)

		jobID := decodeBody(t, rec)["job_id"].(string)

		statusRec := ts.request(t, member, http.MethodGet, "/api/projects/"+projectID.String()+"/jobs/"+jobID, nil)
		require.Equal(t, http.StatusOK, statusRec.Code)
		require.Equal(t, "pending", decodeBody(t, statusRec)["status"])

		otherProject := uuid.Must(uuid.NewV7())
		crossRec := ts.request(t, member, http.MethodGet, "/api/projects/"+otherProject.String()+"/jobs/"+jobID, nil)
		require.Equal(t, http.StatusNotFound, crossRec.Code)
	})

	t.Run("anonymous enqueue redirects to sign-in without writing", func(t *testing.T) {
		anonTS := newTestServer(t)

		rec := anonTS.request(t, nil, http.MethodPost, "/api/projects/"+projectID.String()+"/jobs", map[string]any{
			"type": "report_generation",
		})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/signin", rec.Header().Get("Location"))
		require.Zero(t, anonTS.jobs.Count())
	})

	t.Run("identity without a profile cannot enqueue", func(t *testing.T) {
		ghost := &models.Identity{ID: uuid.Must(uuid.NewV7()), Email: "ghost@example.com"}
		ts.provider.AddIdentity(ghost)

		rec := ts.request(t, ghost, http.MethodPost, "/api/projects/"+projectID.String()+"/jobs", map[string]any{
			"type": "report_generation",
		})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/signin", rec.Header().Get("Location"))
	})

	t.Run("anonymous status read redirects to sign-in", func(t *testing.T) {
		rec := ts.request(t, nil, http.MethodGet, "/api/projects/"+projectID.String()+"/jobs/"+uuid.NewString(), nil)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/signin", rec.Header().Get("Location"))
	})

	t.Run("invalid project id is a bad request", func(t *testing.T) {
		rec := ts.request(t, member, http.MethodPost, "/api/projects/not-a-uuid/jobs", map[string]any{
			"type": "report_generation",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
