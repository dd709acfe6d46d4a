package httpapi

import (
	"net/http"

	"societyhub.org/internal/audit"
	"societyhub.org/internal/identity"
	"societyhub.org/internal/invite"
)

func (a *API) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var body struct {
		SocietyID string `json:"society_id"`
		Phone     string `json:"phone_number"`
		Email     string `json:"email,omitempty"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name,omitempty"`
		Role      string `json:"role"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	inv, code, err := a.svc.Invite(r.Context(), p, invite.CreateRequest{
		SocietyID: body.SocietyID,
		Phone:     body.Phone,
		Email:     body.Email,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Role:      identity.Role(body.Role),
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "invitation.created", map[string]any{
		"invitation_id": inv.ID, "society_id": inv.SocietyID, "role": inv.Role.String(),
	})
	resp := map[string]any{"invitation": inv}
	if a.testingMode {
		resp["otp_code"] = code.Code
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) GetInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := a.svc.GetInvitation(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitation": inv})
}

func (a *API) VerifyInvitationOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone string `json:"phone_number"`
		Code  string `json:"otp_code"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	inv, err := a.svc.VerifyInvitationOTP(r.Context(), body.Phone, body.Code)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitation": inv})
}

func (a *API) CompleteInvitation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password  string `json:"password"`
		FirstName string `json:"first_name,omitempty"`
		LastName  string `json:"last_name,omitempty"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	u, pair, err := a.svc.CompleteInvitation(r.Context(), r.PathValue("id"), invite.CompleteRequest{
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "invitation.accepted", map[string]any{"user_id": u.ID})
	writeJSON(w, http.StatusCreated, map[string]any{"user": u, "tokens": pair})
}

func (a *API) RejectInvitation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.svc.RejectInvitation(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "invitation.rejected", map[string]any{"invitation_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"message": "invitation rejected"})
}

func (a *API) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := a.svc.CancelInvitation(r.Context(), p, id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "invitation.cancelled", map[string]any{"invitation_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"message": "invitation cancelled"})
}

func (a *API) ListInvitations(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	invs, err := a.svc.ListInvitations(r.Context(), p, r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": invs, "count": len(invs)})
}
