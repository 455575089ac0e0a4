package handlers

import (
	"net/http"

	"github.com/nordlane/cloudcrm/internal/api/httpx"
	"github.com/nordlane/cloudcrm/internal/services"
)

// Charge answers 401 on a bad secret and 500 when the pass itself fails.
func (h *Handler) Charge(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Billing.Run(r.Context(), r.Header.Get(services.CronSecretHeader))
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rep)
}
