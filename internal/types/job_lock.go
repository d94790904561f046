package types

import (
	"time"
)

// JobLock is an ephemeral lease row. Any process may reclaim the lease once
// locked_until has passed; a crashed holder therefore self-heals.
type JobLock struct {
	JobKey      string    `gorm:"column:job_key;type:varchar(128);primaryKey" json:"job_key"`
	LockedUntil time.Time `gorm:"column:locked_until;not null;index" json:"locked_until"`
	LockedBy    string    `gorm:"column:locked_by;type:varchar(128);not null" json:"locked_by"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (JobLock) TableName() string { return "job_lock" }
