// Package store owns the transactional read-modify-write protocol for
// rollup documents. All mutation of a document happens inside one
// database transaction holding a row lock, so concurrent order events
// for the same sellable event serialize instead of clobbering each
// other.
package store

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/carretedigital/carrete-backend/pkg/db/models"
	apperrors "github.com/carretedigital/carrete-backend/pkg/errors"
	"github.com/carretedigital/carrete-backend/pkg/logger"
	"github.com/carretedigital/carrete-backend/pkg/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db         *gorm.DB
	logg       *logger.Logger
	metrics    *metrics.RollupMetrics
	maxRetries int
}

func New(db *gorm.DB, logg *logger.Logger, m *metrics.RollupMetrics, maxRetries int) *Store {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Store{db: db, logg: logg, metrics: m, maxRetries: maxRetries}
}

// Apply runs mutate against the rollup document for eventID inside a
// transaction, creating the document lazily on first sight. The whole
// read-modify-write is retried on serialization failure or deadlock, so
// mutate must be a pure function of the document it is handed: it is
// re-invoked on a freshly loaded document every attempt.
//
// An empty row is seeded with ON CONFLICT DO NOTHING before the locking
// read. Without the seed, two first writers for the same event would
// both lock nothing, fold into an empty base, and the later write would
// silently swallow the earlier one.
func (s *Store) Apply(ctx context.Context, eventID string, mutate func(*models.EventRollup) error) (*models.EventRollup, error) {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			s.metrics.IncTxRetry()
			s.logg.Warn(ctx, "retrying rollup transaction after write conflict")
		}

		var doc *models.EventRollup
		lastErr = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := seedRow(tx, eventID); err != nil {
				return err
			}
			current, err := loadForUpdate(tx, eventID)
			if err != nil {
				return err
			}
			if err := mutate(current); err != nil {
				return err
			}
			if err := tx.Save(current).Error; err != nil {
				return fmt.Errorf("writing rollup document: %w", err)
			}
			doc = current
			return nil
		})
		if lastErr == nil {
			return doc, nil
		}
		if !apperrors.SerializationFailure(lastErr) {
			return nil, lastErr
		}
	}
	return nil, apperrors.Wrap(apperrors.CodeConflict, lastErr, "rollup transaction exhausted retries")
}

// Get reads the stored document without locking it.
func (s *Store) Get(ctx context.Context, eventID string) (*models.EventRollup, error) {
	var doc models.EventRollup
	err := s.db.WithContext(ctx).First(&doc, "event_id = ?", eventID).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "rollup document not found")
	}
	if err != nil {
		return nil, fmt.Errorf("reading rollup document: %w", err)
	}
	return &doc, nil
}

// seedRow inserts an empty document for the event if none exists yet,
// giving the locking read a concrete row to contend on. A concurrent
// seeder blocks on the primary key until the other transaction settles.
func seedRow(tx *gorm.DB, eventID string) error {
	empty := models.NewEventRollup(eventID)
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(empty).Error; err != nil {
		return fmt.Errorf("seeding rollup document: %w", err)
	}
	return nil
}

// loadForUpdate reads the document under a row lock. The lock clause is
// postgres-only; the sqlite used in tests serializes writes on its own.
func loadForUpdate(tx *gorm.DB, eventID string) (*models.EventRollup, error) {
	query := tx
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var doc models.EventRollup
	err := query.First(&doc, "event_id = ?", eventID).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		// The seed guarantees the row; missing here means a concurrent
		// transaction rolled back out from under us.
		return models.NewEventRollup(eventID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading rollup document: %w", err)
	}
	return &doc, nil
}
