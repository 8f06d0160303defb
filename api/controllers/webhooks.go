package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/merakiwear/meraki-backend/api/responses"
	"github.com/merakiwear/meraki-backend/internal/webhooks"
	pkgerrors "github.com/merakiwear/meraki-backend/pkg/errors"
	"github.com/merakiwear/meraki-backend/pkg/logger"
)

const (
	paymobSignatureHeader = "X-Paymob-Signature"
	maxWebhookBody        = 1 << 20
)

// PaymobWebhook receives payment results from the gateway. The response
// body is the exact shape Paymob expects, not the API envelope.
func PaymobWebhook(rec *webhooks.PaymobReconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rec == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook handler unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read webhook body"))
			return
		}

		signature := strings.TrimSpace(r.Header.Get(paymobSignatureHeader))
		if signature == "" {
			// Some gateway configurations send the HMAC as a query parameter.
			signature = strings.TrimSpace(r.URL.Query().Get("hmac"))
		}

		if err := rec.Process(r.Context(), body, signature); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteRaw(w, http.StatusOK, map[string]bool{"success": true})
	}
}
