package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/merchportal/backend/internal/domain/shared"
)

// AggregateModel holds the identity, timestamp and version columns shared by
// aggregate tables.
type AggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
	Version   int       `gorm:"not null;default:1"`
}

// ToAggregateRoot converts the columns back to a domain aggregate root.
// Drivers may return local times, so timestamps are normalized to UTC.
func (m *AggregateModel) ToAggregateRoot() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		Version: m.Version,
	}
}

// FromAggregateRoot copies identity, timestamps and version from the aggregate
func (m *AggregateModel) FromAggregateRoot(a shared.BaseAggregateRoot) {
	m.ID = a.ID
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
	m.Version = a.Version
}
