package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nordlane/cloudcrm/internal/api/httpx"
	"github.com/nordlane/cloudcrm/internal/middleware"
)

// UserIDParam is the path parameter the self-or-admin routes are keyed on.
func UserIDParam(r *http.Request) string { return chi.URLParam(r, "id") }

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	b, ok, err := h.Ledger.Read(r.Context(), UserIDParam(r))
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toBalanceResp(b, ok))
}

func (h *Handler) Operations(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	ops, err := h.Ledger.History(r.Context(), UserIDParam(r), limit, offset)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	out := make([]operationResp, 0, len(ops))
	for _, op := range ops {
		out = append(out, toOperationResp(op))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type apiKeyResp struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueAPIKey returns a long-lived bearer token for the user in the path.
// The token is only shown once.
func (h *Handler) IssueAPIKey(w http.ResponseWriter, r *http.Request) {
	s, err := h.Users.IssueAPIKey(r.Context(), UserIDParam(r))
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	h.Log.Info("api key issued", "user_id", s.User.ID, "expires_at", s.ExpiresAt)
	httpx.WriteJSON(w, http.StatusCreated, apiKeyResp{Token: s.Token, ExpiresAt: s.ExpiresAt})
}

func (h *Handler) UserServices(w http.ResponseWriter, r *http.Request) {
	list, err := h.Services.ListForUser(r.Context(), UserIDParam(r))
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	out := make([]serviceResp, 0, len(list))
	for _, s := range list {
		out = append(out, toServiceResp(s))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type subscriptionResp struct {
	UserID  string `json:"user_id"`
	Active  bool   `json:"active"`
	Balance string `json:"balance"`
}

func (h *Handler) Subscription(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	sub, err := h.Users.Subscription(r.Context(), p)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, subscriptionResp{UserID: sub.UserID, Active: sub.Active, Balance: fixed(sub.Balance)})
}
