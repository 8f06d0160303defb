package controllers

import (
	"net/http"

	"github.com/merakiwear/meraki-backend/api/responses"
	"github.com/merakiwear/meraki-backend/api/validators"
	"github.com/merakiwear/meraki-backend/internal/discounts"
	pkgerrors "github.com/merakiwear/meraki-backend/pkg/errors"
	"github.com/merakiwear/meraki-backend/pkg/logger"
)

// DiscountsQuery answers the storefront's batch discount lookup. Unknown
// product ids resolve to zero; the endpoint never errors on bad ids.
func DiscountsQuery(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}

		var body discounts.QueryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Query(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
