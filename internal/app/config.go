package app

import (
	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/utils"
)

type Config struct {
	// LockBackend chooses the job-lock store: "gorm" or "redis".
	LockBackend string
	// NightlyAt is the UTC "HH:MM" the batch jobs fire.
	NightlyAt        string
	LeaseMinutes     int
	Parallelism      int
	ActiveWindowDays int
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		LockBackend:      utils.GetEnv("LOCK_BACKEND", "gorm", log),
		NightlyAt:        utils.GetEnv("NIGHTLY_AT", "03:00", log),
		LeaseMinutes:     utils.GetEnvAsInt("JOB_LEASE_MINUTES", 60, log),
		Parallelism:      utils.GetEnvAsInt("JOB_PARALLELISM", 4, log),
		ActiveWindowDays: utils.GetEnvAsInt("ACTIVE_WINDOW_DAYS", 30, log),
	}
}
