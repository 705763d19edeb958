package store

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/carretedigital/carrete-backend/pkg/db/models"
	apperrors "github.com/carretedigital/carrete-backend/pkg/errors"
	"github.com/carretedigital/carrete-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// In-memory sqlite keeps one database per connection.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.EventRollup{}))
	return db
}

func newTestStore(t *testing.T, db *gorm.DB) *Store {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "store-test", Output: io.Discard})
	return New(db, logg, nil, 3)
}

func TestApplyCreatesDocumentLazily(t *testing.T) {
	db := newTestDB(t)
	s := newTestStore(t, db)

	doc, err := s.Apply(context.Background(), "evt-1", func(doc *models.EventRollup) error {
		doc.Summary.PendingCount = 1
		doc.Summary.TotalPaymentsSeen = 1
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", doc.EventID)

	stored, err := s.Get(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Summary.PendingCount)
	assert.Equal(t, 1, stored.Summary.TotalPaymentsSeen)
	assert.NotNil(t, stored.SeriesDaily)
}

func TestApplyMutatesCurrentState(t *testing.T) {
	db := newTestDB(t)
	s := newTestStore(t, db)
	ctx := context.Background()

	_, err := s.Apply(ctx, "evt-1", func(doc *models.EventRollup) error {
		doc.Summary.NetRevenue = 10000
		doc.SeriesDaily["2025-08-11"] = models.RollupDayStat{NetRevenue: 10000, PaidCount: 1}
		return nil
	})
	require.NoError(t, err)

	_, err = s.Apply(ctx, "evt-1", func(doc *models.EventRollup) error {
		doc.Summary.NetRevenue += 5000
		return nil
	})
	require.NoError(t, err)

	stored, err := s.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, int64(15000), stored.Summary.NetRevenue)
	assert.Equal(t, 1, stored.SeriesDaily["2025-08-11"].PaidCount)
}

func TestApplyPersistsJSONBContainers(t *testing.T) {
	db := newTestDB(t)
	s := newTestStore(t, db)
	ctx := context.Background()

	_, err := s.Apply(ctx, "evt-1", func(doc *models.EventRollup) error {
		doc.Buyers.PerBuyer["alice"] = models.RollupBuyerStat{PurchaseCount: 2, TotalSpent: 9000}
		doc.Buyers.UniqueCount = 1
		doc.Buyers.RepeatCount = 1
		doc.TicketsByType["VIP"] = models.RollupTicketStat{Qty: 2, NetRevenue: 9000}
		doc.RecentOrders = append(doc.RecentOrders, models.RollupOrderSnapshot{OrderID: "O1", Status: "paid", Net: 9000})
		return nil
	})
	require.NoError(t, err)

	stored, err := s.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, int64(9000), stored.Buyers.PerBuyer["alice"].TotalSpent)
	assert.Equal(t, 2, stored.TicketsByType["VIP"].Qty)
	require.Len(t, stored.RecentOrders, 1)
	assert.Equal(t, "O1", stored.RecentOrders[0].OrderID)
}

func TestApplyConcurrentFirstWritesBothSurvive(t *testing.T) {
	// Two writers racing on a brand-new event must each fold into the
	// other's committed state, never into an empty base.
	db := newTestDB(t)
	s := newTestStore(t, db)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Apply(ctx, "evt-1", func(doc *models.EventRollup) error {
				doc.Summary.NetRevenue += 1000
				doc.Summary.PaidCount++
				doc.Summary.TotalPaymentsSeen++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := s.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), stored.Summary.NetRevenue)
	assert.Equal(t, 2, stored.Summary.PaidCount)
	assert.Equal(t, 2, stored.Summary.TotalPaymentsSeen)
}

func TestApplyMutateErrorAbortsWithoutWriting(t *testing.T) {
	db := newTestDB(t)
	s := newTestStore(t, db)
	ctx := context.Background()

	boom := errors.New("boom")
	calls := 0
	_, err := s.Apply(ctx, "evt-1", func(doc *models.EventRollup) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "non-conflict errors must not be retried")

	_, err = s.Get(ctx, "evt-1")
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeNotFound, typed.Code())
}

func TestGetMissingDocument(t *testing.T) {
	db := newTestDB(t)
	s := newTestStore(t, db)

	_, err := s.Get(context.Background(), "nope")
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeNotFound, typed.Code())
}
