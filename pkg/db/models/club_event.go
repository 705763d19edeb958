package models

import "time"

// ClubEvent is the sellable event record owned by the CRUD/admin layer.
// The rollup worker only performs point reads against it to backfill a
// missing club id on incoming orders.
type ClubEvent struct {
	ID        string     `gorm:"column:id;primaryKey" json:"id"`
	ClubID    *string    `gorm:"column:club_id" json:"clubId,omitempty"`
	Name      string     `gorm:"column:name" json:"name"`
	StartsAt  *time.Time `gorm:"column:starts_at" json:"startsAt,omitempty"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName overrides the gorm naming strategy.
func (ClubEvent) TableName() string { return "club_events" }
