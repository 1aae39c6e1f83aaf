package model

import (
	"time"

	"github.com/google/uuid"
)

// Location kinds.
const (
	LocationWarehouse = "warehouse"
	LocationVehicle   = "vehicle"
	LocationSite      = "site"
	LocationOther     = "other"
)

// Location is a named place where stock can physically sit.
type Location struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	Kind      string    `gorm:"type:varchar(20);not null;default:'warehouse'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (l *Location) Label() string {
	if l == nil {
		return "unknown location"
	}
	return l.Name
}
