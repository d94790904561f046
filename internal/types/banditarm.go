package types

import (
	"time"

	"github.com/google/uuid"
)

// BanditArm holds per-(user, theme) Beta reward counts for the Thompson
// sampling selector. Alpha counts rewarded selections, Beta unrewarded ones;
// both start at 1 (uniform prior).
type BanditArm struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index:idx_bandit_user_theme,unique" json:"user_id"`
	ThemeID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_bandit_user_theme,unique" json:"theme_id"`
	Alpha          float64    `gorm:"column:alpha;not null;default:1" json:"alpha"`
	Beta           float64    `gorm:"column:beta;not null;default:1" json:"beta"`
	Pulls          int        `gorm:"column:pulls;not null;default:0" json:"pulls"`
	LastSelectedAt *time.Time `gorm:"column:last_selected_at" json:"last_selected_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (BanditArm) TableName() string { return "bandit_arm" }
