package handlers

import (
	"net/http"

	"github.com/nordlane/cloudcrm/internal/api/httpx"
	"github.com/nordlane/cloudcrm/internal/api/validate"
	"github.com/nordlane/cloudcrm/internal/middleware"
)

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())

	var req changePasswordReq
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	if err := validate.Collect(
		validate.Required("current_password", req.CurrentPassword),
		validate.Required("new_password", req.NewPassword),
	); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	if err := h.Users.ChangePassword(r.Context(), p.ID, req.CurrentPassword, req.NewPassword); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	h.Log.Info("password changed", "user_id", p.ID)
	w.WriteHeader(http.StatusNoContent)
}

type changeEmailReq struct {
	Password string `json:"password"`
	NewEmail string `json:"new_email"`
}

// ChangeEmail reissues the session cookie so the token carries the new
// address.
func (h *Handler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())

	var req changeEmailReq
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	if err := validate.Collect(
		validate.Required("password", req.Password),
		validate.Email("new_email", req.NewEmail),
	); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	u, err := h.Users.ChangeEmail(r.Context(), p.ID, req.Password, req.NewEmail)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	if s, err := h.Users.ReissueSession(r.Context(), u.ID); err == nil {
		h.setSession(w, s)
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}
