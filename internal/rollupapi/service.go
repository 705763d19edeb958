// Package rollupapi exposes read access to rollup documents for the
// dashboard endpoints.
package rollupapi

import (
	"context"

	"github.com/carretedigital/carrete-backend/pkg/db/models"
	apperrors "github.com/carretedigital/carrete-backend/pkg/errors"
	"github.com/carretedigital/carrete-backend/pkg/logger"
)

// DocumentReader reads stored rollup documents.
type DocumentReader interface {
	Get(ctx context.Context, eventID string) (*models.EventRollup, error)
}

type Service struct {
	store DocumentReader
	logg  *logger.Logger
}

func NewService(store DocumentReader, logg *logger.Logger) *Service {
	return &Service{store: store, logg: logg}
}

// Filter narrows the daily series to an inclusive day-key range.
// Day keys sort lexicographically, so plain string comparison works.
type Filter struct {
	DayFrom string
	DayTo   string
}

// Get returns the rollup document for the event, applying the optional
// day filter to seriesDaily. The rest of the document is untouched.
func (s *Service) Get(ctx context.Context, eventID string, filter Filter) (*models.EventRollup, error) {
	if eventID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "event id is required")
	}

	doc, err := s.store.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if filter.DayFrom == "" && filter.DayTo == "" {
		return doc, nil
	}

	filtered := models.RollupDaily{}
	for day, stat := range doc.SeriesDaily {
		if filter.DayFrom != "" && day < filter.DayFrom {
			continue
		}
		if filter.DayTo != "" && day > filter.DayTo {
			continue
		}
		filtered[day] = stat
	}
	doc.SeriesDaily = filtered
	return doc, nil
}
