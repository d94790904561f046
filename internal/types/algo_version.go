package types

import (
	"time"

	"github.com/google/uuid"
)

type AlgoVersion struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AlgoKey   AlgoKey   `gorm:"column:algo_key;type:varchar(32);not null;index:idx_algo_key_version,unique" json:"algo_key"`
	Version   string    `gorm:"column:version;type:varchar(64);not null;index:idx_algo_key_version,unique" json:"version"`
	Status    string    `gorm:"column:status;type:varchar(16);not null;index" json:"status"` // ACTIVE|DEPRECATED|EXPERIMENTAL
	Notes     string    `gorm:"column:notes" json:"notes"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AlgoVersion) TableName() string { return "algo_version" }
