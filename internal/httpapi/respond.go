package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"societyhub.org/internal/audit"
	"societyhub.org/internal/auth"
	"societyhub.org/internal/identity"
	"societyhub.org/internal/invite"
	"societyhub.org/internal/obs"
	"societyhub.org/internal/otp"
	"societyhub.org/internal/society"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	body := map[string]any{"error": msg}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		body["request_id"] = rid
	}
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, code, body)
}

// respondDomainError maps domain sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body; the log carries the detail.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var pae *auth.PendingApprovalError
	if errors.As(err, &pae) {
		body := map[string]any{"error": "account pending approval"}
		if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
			body["request_id"] = rid
		}
		if pae.Contact != nil {
			body["contact"] = map[string]any{
				"name":         pae.Contact.FullName(),
				"phone_number": pae.Contact.Phone,
			}
		}
		writeJSON(w, http.StatusForbidden, body)
		return
	}

	switch {
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		respondError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrForbidden):
		respondError(w, r, http.StatusForbidden, "operation not permitted")
	case errors.Is(err, identity.ErrDuplicatePhone):
		respondError(w, r, http.StatusConflict, "phone number already registered")
	case errors.Is(err, invite.ErrDuplicatePending):
		respondError(w, r, http.StatusConflict, "a pending invitation already exists for this phone")
	case errors.Is(err, invite.ErrUserExists):
		respondError(w, r, http.StatusConflict, "phone already belongs to a registered user")
	case errors.Is(err, invite.ErrNotPending), errors.Is(err, invite.ErrNotVerified):
		respondError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, invite.ErrExpired):
		respondError(w, r, http.StatusGone, "invitation has expired")
	case errors.Is(err, otp.ErrInvalidOrExpired):
		respondError(w, r, http.StatusBadRequest, "invalid or expired code")
	case errors.Is(err, identity.ErrNotFound),
		errors.Is(err, invite.ErrNotFound),
		errors.Is(err, society.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrInvalidPhone),
		errors.Is(err, identity.ErrInvalidRole),
		errors.Is(err, invite.ErrInvalidRequest),
		errors.Is(err, otp.ErrInvalidPurpose),
		errors.Is(err, otp.ErrInvalidPhone),
		errors.Is(err, society.ErrInvalidName):
		respondError(w, r, http.StatusBadRequest, err.Error())
	default:
		obs.LogRequest(map[string]any{
			"level": "error",
			"msg":   "unhandled_error",
			"error": err.Error(),
			"path":  r.URL.Path,
		})
		respondError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, r, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	return true
}
