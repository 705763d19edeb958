package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/carretedigital/carrete-backend/api/responses"
	"github.com/carretedigital/carrete-backend/api/validators"
	"github.com/carretedigital/carrete-backend/internal/rollupapi"
	"github.com/carretedigital/carrete-backend/pkg/db/models"
	"github.com/carretedigital/carrete-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// RollupReader serves stored rollup documents to the dashboard.
type RollupReader interface {
	Get(ctx context.Context, eventID string, filter rollupapi.Filter) (*models.EventRollup, error)
}

func GetRollup(svc RollupReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		eventID := strings.TrimSpace(chi.URLParam(r, "eventID"))
		ctx = logg.WithEventID(ctx, eventID)

		filter, err := validators.ParseRollupFilter(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		doc, err := svc.Get(ctx, eventID, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, doc)
	}
}
