// Package httpapi is the REST surface over the authentication service, the
// invitation ledger and the society registry.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"societyhub.org/api/spec"
	"societyhub.org/internal/auth"
	"societyhub.org/internal/identity"
	"societyhub.org/internal/obs"
	"societyhub.org/internal/society"
)

// ReadyProbe reports whether the service can reach its dependencies.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config carries the surface-level knobs.
type Config struct {
	Version string

	// TestingMode echoes issued codes in API responses so integration
	// suites can complete OTP flows without an SMS gateway. Never enable
	// in production.
	TestingMode bool
}

// API is the HTTP layer.
type API struct {
	mux         *http.ServeMux
	svc         *auth.Service
	societies   society.Store
	readyProbe  ReadyProbe
	version     string
	testingMode bool
}

func New(svc *auth.Service, societies society.Store, rp ReadyProbe, cfg Config) *API {
	a := &API{
		mux:         http.NewServeMux(),
		svc:         svc,
		societies:   societies,
		readyProbe:  rp,
		version:     cfg.Version,
		testingMode: cfg.TestingMode,
	}

	// health/ready/info
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /api/info", a.Info)

	// OpenAPI YAML
	a.mux.HandleFunc("GET /openapi.yaml", a.OpenAPISpec)

	// Prometheus metrics
	a.mux.Handle("GET /metrics", obs.Handler())

	// Credential flows (public)
	a.mux.HandleFunc("POST /api/auth/register", a.RegisterMember)
	a.mux.HandleFunc("POST /api/auth/login", a.LoginPassword)
	a.mux.HandleFunc("POST /api/auth/login/otp", a.LoginOTPStart)
	a.mux.HandleFunc("POST /api/auth/login/otp/verify", a.LoginOTPVerify)
	a.mux.HandleFunc("POST /api/auth/forgot-password", a.ForgotPassword)
	a.mux.HandleFunc("POST /api/auth/reset-password", a.ResetPassword)
	a.mux.HandleFunc("POST /api/auth/send-otp", a.SendOTP)
	a.mux.HandleFunc("POST /api/auth/verify-otp", a.VerifyOTP)
	a.mux.HandleFunc("POST /api/auth/refresh", a.Refresh)
	a.mux.HandleFunc("POST /api/auth/logout", a.Logout)
	a.mux.HandleFunc("GET /api/auth/me", a.Me)

	// Invitee-facing invitation flow. Verification is keyed by phone, since
	// the invitee receives only the code; completion uses the invitation id.
	a.mux.HandleFunc("GET /api/invitations/{id}", a.GetInvitation)
	a.mux.HandleFunc("POST /api/invitations/verify-otp", a.VerifyInvitationOTP)
	a.mux.HandleFunc("POST /api/invitations/{id}/complete", a.CompleteInvitation)
	a.mux.HandleFunc("POST /api/invitations/{id}/reject", a.RejectInvitation)

	// Office-facing invitation management
	office := []identity.Role{identity.RoleAdmin, identity.RoleSubAdmin}
	a.mux.Handle("POST /api/invitations", RequireRole(http.HandlerFunc(a.CreateInvitation), office...))
	a.mux.Handle("POST /api/invitations/{id}/cancel", RequireRole(http.HandlerFunc(a.CancelInvitation), office...))
	a.mux.Handle("GET /api/societies/{id}/invitations", RequireRole(http.HandlerFunc(a.ListInvitations), office...))

	// Accounts and approvals
	a.mux.Handle("POST /api/admins", RequireRole(http.HandlerFunc(a.CreateAdmin), identity.RoleAdmin))
	a.mux.Handle("POST /api/staff", RequireRole(http.HandlerFunc(a.CreateStaff), office...))
	a.mux.Handle("GET /api/societies/{id}/members/pending", RequireRole(http.HandlerFunc(a.PendingMembers), office...))
	a.mux.Handle("POST /api/members/{id}/approve", RequireRole(http.HandlerFunc(a.ApproveMember), office...))

	// Society registry
	a.mux.HandleFunc("GET /api/societies", a.ListSocieties)
	a.mux.HandleFunc("GET /api/societies/{id}", a.GetSociety)
	a.mux.Handle("POST /api/societies", RequireRole(http.HandlerFunc(a.CreateSociety), identity.RoleAdmin))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = RateLimit(h, 20, 10)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "societyhub-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "societyhub-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}
