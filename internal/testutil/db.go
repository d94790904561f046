package testutil

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/types"
)

// NewTestDB opens a private in-memory sqlite database migrated with the full
// engine schema. Each call gets its own database, so tests stay independent.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// A pooled second connection would see an empty in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&types.AlgoVersion{},
		&types.AlgoParams{},
		&types.AlgoRun{},
		&types.Attempt{},
		&types.MasteryState{},
		&types.DifficultyState{},
		&types.RevisionEntry{},
		&types.MistakeClassification{},
		&types.BanditArm{},
		&types.JobLock{},
		&types.QueuedJob{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// NewTestLogger returns a development logger for tests.
func NewTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}
