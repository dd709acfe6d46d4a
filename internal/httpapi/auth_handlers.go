package httpapi

import (
	"net/http"

	"societyhub.org/internal/audit"
	"societyhub.org/internal/auth"
	"societyhub.org/internal/otp"
)

type credentialsBody struct {
	Phone    string `json:"phone_number"`
	Password string `json:"password,omitempty"`
	Code     string `json:"otp_code,omitempty"`
	Purpose  string `json:"purpose,omitempty"`
}

func (a *API) RegisterMember(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone     string `json:"phone_number"`
		Email     string `json:"email,omitempty"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name,omitempty"`
		Password  string `json:"password"`
		SocietyID string `json:"society_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	u, rec, err := a.svc.Register(r.Context(), auth.RegisterRequest{
		Phone:     body.Phone,
		Email:     body.Email,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Password:  body.Password,
		SocietyID: body.SocietyID,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "member.registered", map[string]any{
		"user_id": u.ID, "society_id": u.SocietyID,
	})
	resp := map[string]any{
		"user":           u,
		"message":        "registration received, awaiting society approval",
		"otp_expires_at": rec.ExpiresAt,
	}
	if a.testingMode {
		resp["otp_code"] = rec.Code
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) LoginPassword(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !decodeJSON(w, r, &body) {
		return
	}
	u, pair, err := a.svc.LoginWithPassword(r.Context(), body.Phone, body.Password)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "login.password", map[string]any{"user_id": u.ID})
	writeJSON(w, http.StatusOK, map[string]any{"user": u, "tokens": pair})
}

func (a *API) LoginOTPStart(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !decodeJSON(w, r, &body) {
		return
	}
	rec, err := a.svc.LoginOTPStart(r.Context(), body.Phone)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.codeIssuedBody(rec))
}

func (a *API) LoginOTPVerify(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !decodeJSON(w, r, &body) {
		return
	}
	u, pair, err := a.svc.LoginOTPVerify(r.Context(), body.Phone, body.Code)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "login.otp", map[string]any{"user_id": u.ID})
	writeJSON(w, http.StatusOK, map[string]any{"user": u, "tokens": pair})
}

func (a *API) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !decodeJSON(w, r, &body) {
		return
	}
	rec, err := a.svc.ForgotPassword(r.Context(), body.Phone)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.codeIssuedBody(rec))
}

func (a *API) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone       string `json:"phone_number"`
		Code        string `json:"otp_code"`
		NewPassword string `json:"new_password"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := a.svc.ResetPassword(r.Context(), body.Phone, body.Code, body.NewPassword); err != nil {
		respondDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "password.reset", map[string]any{"phone": body.Phone})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "password updated, existing sessions remain valid until expiry",
	})
}

func (a *API) SendOTP(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !decodeJSON(w, r, &body) {
		return
	}
	purpose, err := otp.ParsePurpose(body.Purpose)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	rec, err := a.svc.SendOTP(r.Context(), body.Phone, purpose)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.codeIssuedBody(rec))
}

func (a *API) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !decodeJSON(w, r, &body) {
		return
	}
	purpose, err := otp.ParsePurpose(body.Purpose)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if _, err := a.svc.VerifyOTP(r.Context(), body.Phone, body.Code, purpose); err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "code verified"})
}

func (a *API) Refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	pair, err := a.svc.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": pair})
}

// Logout is advisory: tokens are stateless, so the server has nothing to
// revoke. Clients discard their pair.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		_ = audit.LogEvent(r.Context(), "logout", map[string]any{"user_id": p.UserID})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "logged out, discard tokens client-side",
	})
}

func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	u, err := a.svc.Me(r.Context(), p)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (a *API) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var body struct {
		Phone     string `json:"phone_number"`
		Email     string `json:"email,omitempty"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name,omitempty"`
		Password  string `json:"password"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	u, err := a.svc.CreateAdmin(r.Context(), p.UserID, auth.CreateUserRequest{
		Phone:     body.Phone,
		Email:     body.Email,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Password:  body.Password,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.created", map[string]any{"user_id": u.ID})
	writeJSON(w, http.StatusCreated, map[string]any{"user": u})
}

func (a *API) CreateStaff(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var body struct {
		Phone     string `json:"phone_number"`
		Email     string `json:"email,omitempty"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name,omitempty"`
		Password  string `json:"password"`
		SocietyID string `json:"society_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	u, err := a.svc.CreateStaff(r.Context(), p, auth.CreateUserRequest{
		Phone:     body.Phone,
		Email:     body.Email,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Password:  body.Password,
		SocietyID: body.SocietyID,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "staff.created", map[string]any{
		"user_id": u.ID, "society_id": u.SocietyID,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"user": u})
}

func (a *API) ApproveMember(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	memberID := r.PathValue("id")
	if err := a.svc.ApproveMember(r.Context(), p, memberID); err != nil {
		respondDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "member.approved", map[string]any{"member_id": memberID})
	writeJSON(w, http.StatusOK, map[string]any{"message": "member approved"})
}

func (a *API) PendingMembers(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	members, err := a.svc.PendingMembers(r.Context(), p, r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members, "count": len(members)})
}

// codeIssuedBody shapes the response to a code issuance. The code itself is
// echoed only in testing mode.
func (a *API) codeIssuedBody(rec *otp.Record) map[string]any {
	body := map[string]any{
		"message":    "code sent",
		"expires_at": rec.ExpiresAt,
	}
	if a.testingMode {
		body["otp_code"] = rec.Code
	}
	return body
}
