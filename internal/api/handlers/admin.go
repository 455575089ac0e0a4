package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nordlane/cloudcrm/internal/api/httpx"
	"github.com/nordlane/cloudcrm/internal/api/validate"
	"github.com/nordlane/cloudcrm/internal/middleware"
	"github.com/nordlane/cloudcrm/internal/models"
)

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	users, err := h.Users.List(r.Context(), limit, offset)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}

type setRoleReq struct {
	Role string `json:"role"`
}

// SetRole changes the stored role. Sessions issued before the change keep
// the old role until they are refreshed.
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleReq
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	if err := validate.Collect(validate.OneOf("role", req.Role, string(models.RoleAdmin), string(models.RoleClient))); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Users.SetRole(r.Context(), id, models.Role(req.Role)); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	p, _ := middleware.PrincipalFrom(r.Context())
	h.Log.Info("role changed", "user_id", id, "role", req.Role, "by", p.ID)
	w.WriteHeader(http.StatusNoContent)
}

type amountReq struct {
	Amount string `json:"amount"`
}

type creditResp struct {
	Operation operationResp `json:"operation"`
	Balance   balanceResp   `json:"balance"`
}

func (h *Handler) Credit(w http.ResponseWriter, r *http.Request) {
	var req amountReq
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	amount, fe := validate.Money("amount", req.Amount)
	if err := validate.Collect(fe); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	op, bal, err := h.Ledger.Credit(r.Context(), chi.URLParam(r, "id"), amount, models.MethodManual)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, creditResp{Operation: toOperationResp(op), Balance: toBalanceResp(bal, true)})
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	list, err := h.Services.ListAll(r.Context(), limit, offset)
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

type createServiceReq struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	PricePerDay string `json:"price_per_day"`
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req createServiceReq
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	price, fe := validate.Money("price_per_day", req.PricePerDay)
	if err := validate.Collect(
		validate.Required("user_id", req.UserID),
		validate.Required("name", req.Name),
		fe,
	); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	s, err := h.Services.Create(r.Context(), req.UserID, req.Name, price)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toServiceResp(s))
}

func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	if err := h.Services.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
