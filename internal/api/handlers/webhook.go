package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/nordlane/cloudcrm/internal/api/httpx"
	"github.com/nordlane/cloudcrm/internal/common"
	"github.com/nordlane/cloudcrm/internal/services"
)

// PaymentWebhook needs the raw body: the signature covers the exact bytes
// the provider sent.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httpx.WriteErr(w, r, errors.Join(common.ErrBadRequest, err))
		return
	}
	res, err := h.Webhook.Process(r.Context(), body, r.Header.Get(services.SignatureHeader))
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"outcome": string(res.Outcome)})
}
