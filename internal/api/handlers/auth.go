package handlers

import (
	"net/http"
	"time"

	"github.com/nordlane/cloudcrm/internal/api/httpx"
	"github.com/nordlane/cloudcrm/internal/api/validate"
	"github.com/nordlane/cloudcrm/internal/auth"
	"github.com/nordlane/cloudcrm/internal/common"
	"github.com/nordlane/cloudcrm/internal/middleware"
	"github.com/nordlane/cloudcrm/internal/models"
	"github.com/nordlane/cloudcrm/internal/services"
)

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c credentialsReq) validate() error {
	return validate.Collect(
		validate.Required("email", c.Email),
		validate.Email("email", c.Email),
		validate.Required("password", c.Password),
	)
}

type sessionResp struct {
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (h *Handler) setSession(w http.ResponseWriter, s services.Session) {
	auth.SetSessionCookie(w, s.Token, s.TTL, h.SecureCookie)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	u, err := h.Users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	h.Log.Info("user registered", "user_id", u.ID)
	httpx.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	s, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	h.setSession(w, s)
	httpx.WriteJSON(w, http.StatusOK, sessionResp{User: s.User, ExpiresAt: s.ExpiresAt})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.SecureCookie)
	w.WriteHeader(http.StatusNoContent)
}

// Me answers from the token alone, so the role shown is the one the session
// was issued with.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		httpx.WriteErr(w, r, common.ErrUnauthenticated)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	s, err := h.Users.ReissueSession(r.Context(), p.ID)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	h.setSession(w, s)
	httpx.WriteJSON(w, http.StatusOK, sessionResp{User: s.User, ExpiresAt: s.ExpiresAt})
}
