package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AlgoParams struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AlgoVersionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"algo_version_id"`
	AlgoVersion   *AlgoVersion   `gorm:"constraint:OnDelete:CASCADE;foreignKey:AlgoVersionID;references:ID" json:"algo_version,omitempty"`
	Params        datatypes.JSON `gorm:"type:jsonb;column:params;not null" json:"params"`
	Checksum      string         `gorm:"column:checksum;type:varchar(64);not null" json:"checksum"`
	IsActive      bool           `gorm:"column:is_active;not null;default:false;index" json:"is_active"`
	Label         string         `gorm:"column:label" json:"label"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AlgoParams) TableName() string { return "algo_params" }
