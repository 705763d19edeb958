package rollup

import (
	"context"
	"time"

	"github.com/carretedigital/carrete-backend/internal/rollup/normalize"
	"github.com/carretedigital/carrete-backend/pkg/db/models"
	"github.com/carretedigital/carrete-backend/pkg/enums"
	apperrors "github.com/carretedigital/carrete-backend/pkg/errors"
	"github.com/carretedigital/carrete-backend/pkg/events"
	"github.com/carretedigital/carrete-backend/pkg/logger"
	"github.com/carretedigital/carrete-backend/pkg/metrics"
)

// DocumentStore is the transactional read-modify-write boundary around
// the rollup document.
type DocumentStore interface {
	Apply(ctx context.Context, eventID string, mutate func(*models.EventRollup) error) (*models.EventRollup, error)
}

// ClubResolver backfills a missing club id from the event record.
type ClubResolver interface {
	GetClubIDForEvent(ctx context.Context, eventID string) (string, bool)
}

// Service runs the aggregation pipeline for one order trigger event:
// normalize both images, enrich, fold, persist.
type Service struct {
	store   DocumentStore
	clubs   ClubResolver
	logg    *logger.Logger
	metrics *metrics.RollupMetrics
	now     func() time.Time
}

func NewService(store DocumentStore, clubs ClubResolver, logg *logger.Logger, m *metrics.RollupMetrics) *Service {
	return &Service{
		store:   store,
		clubs:   clubs,
		logg:    logg,
		metrics: m,
		now:     time.Now,
	}
}

// HandleOrderChanged folds one order transition into its event's rollup
// document. Skips (no after image, no event id) are not errors; a
// returned error means the document was not written and the delivery
// should be retried.
func (s *Service) HandleOrderChanged(ctx context.Context, evt events.OrderChangedEvent) error {
	beforeRaw, err := evt.BeforeMap()
	if err != nil {
		return apperrors.Wrap(apperrors.CodeValidation, err, "decoding before image")
	}
	afterRaw, err := evt.AfterMap()
	if err != nil {
		return apperrors.Wrap(apperrors.CodeValidation, err, "decoding after image")
	}

	if afterRaw == nil {
		s.metrics.IncSkipped("no_after_image")
		s.logg.Info(ctx, "order has no after image, rollup unchanged")
		return nil
	}

	now := s.now()
	before := normalize.Normalize(beforeRaw, now)
	after := normalize.Normalize(afterRaw, now)
	if after.OrderID == "" {
		after.OrderID = evt.OrderID
	}

	if after.EventID == "" {
		s.metrics.IncSkipped("missing_event_id")
		s.logg.Warn(s.logg.WithOrderID(ctx, after.OrderID), "order carries no event id, skipping")
		return nil
	}
	// A before image bound to a different event (or to none, because its
	// own write was skipped) never contributed to this document. Reverting
	// it would subtract state that was never added.
	if before != nil && before.EventID != after.EventID {
		before = nil
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id": after.EventID,
		"order_id": after.OrderID,
	})

	// Best-effort enrichment, kept outside the transaction so retries
	// never repeat the lookup.
	clubID := after.ClubID
	if clubID == "" {
		clubID, _ = s.clubs.GetClubIDForEvent(ctx, after.EventID)
	}

	started := time.Now()
	_, err = s.store.Apply(ctx, after.EventID, func(doc *models.EventRollup) error {
		if clubID != "" {
			doc.ClubID = &clubID
		}
		Fold(doc, before, after)
		return nil
	})
	s.metrics.ObserveApply(time.Since(started))
	if err != nil {
		s.metrics.IncFailed("store_apply")
		s.logg.Error(ctx, "applying rollup delta failed", err)
		return err
	}

	s.metrics.IncProcessed(string(enums.OrderEventChanged))
	s.logg.Info(ctx, "order folded into rollup")
	return nil
}
