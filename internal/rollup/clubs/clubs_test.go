package clubs

import (
	"context"
	"io"
	"testing"

	"github.com/carretedigital/carrete-backend/pkg/db/models"
	"github.com/carretedigital/carrete-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestResolver(t *testing.T) (*Resolver, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.ClubEvent{}))

	logg := logger.New(logger.Options{ServiceName: "clubs-test", Output: io.Discard})
	return NewResolver(db, logg), db
}

func TestGetClubIDForEvent(t *testing.T) {
	r, db := newTestResolver(t)
	clubID := "club-9"
	require.NoError(t, db.Create(&models.ClubEvent{ID: "evt-1", ClubID: &clubID, Name: "Opening Night"}).Error)

	got, ok := r.GetClubIDForEvent(context.Background(), "evt-1")
	assert.True(t, ok)
	assert.Equal(t, "club-9", got)
}

func TestGetClubIDForEventMissingRecord(t *testing.T) {
	r, _ := newTestResolver(t)

	got, ok := r.GetClubIDForEvent(context.Background(), "nope")
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestGetClubIDForEventMissingField(t *testing.T) {
	r, db := newTestResolver(t)
	require.NoError(t, db.Create(&models.ClubEvent{ID: "evt-2", Name: "No Club"}).Error)

	_, ok := r.GetClubIDForEvent(context.Background(), "evt-2")
	assert.False(t, ok)
}
