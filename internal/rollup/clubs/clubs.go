// Package clubs resolves the owning club of a sellable event. Orders
// usually carry the club id themselves; this lookup backfills it when
// they do not.
package clubs

import (
	"context"
	"errors"

	"github.com/carretedigital/carrete-backend/pkg/db/models"
	"github.com/carretedigital/carrete-backend/pkg/logger"
	"gorm.io/gorm"
)

type Resolver struct {
	db   *gorm.DB
	logg *logger.Logger
}

func NewResolver(db *gorm.DB, logg *logger.Logger) *Resolver {
	return &Resolver{db: db, logg: logg}
}

// GetClubIDForEvent performs one point read of the event record.
// Best-effort enrichment: absence of the record or the field is not an
// error, and lookup failures are reported as not found after a warning.
// Callers must never block aggregation on this.
func (r *Resolver) GetClubIDForEvent(ctx context.Context, eventID string) (string, bool) {
	var event models.ClubEvent
	err := r.db.WithContext(ctx).First(&event, "id = ?", eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false
	}
	if err != nil {
		r.logg.Warn(r.logg.WithEventID(ctx, eventID), "club lookup failed: "+err.Error())
		return "", false
	}
	if event.ClubID == nil || *event.ClubID == "" {
		return "", false
	}
	return *event.ClubID, true
}
