// Package migrate owns the schema. Steps are applied in order, once, and
// recorded in schema_migrations; nothing at runtime inspects the schema's shape.
package migrate

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"routelink/internal/models"
)

// SchemaMigration records an applied step.
type SchemaMigration struct {
	Version   int    `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"size:100;not null"`
	AppliedAt time.Time
}

// Step is one schema change.
type Step struct {
	Version int
	Name    string
	Up      func(tx *gorm.DB) error
}

// Steps is the schema history. Append only.
var Steps = []Step{
	{Version: 1, Name: "create tables", Up: func(tx *gorm.DB) error {
		return tx.Migrator().CreateTable(
			&models.User{},
			&models.Route{},
			&models.Link{},
			&models.CalendarEntry{},
			&models.SlotCounter{},
		)
	}},
	{Version: 2, Name: "calendar uniqueness", Up: func(tx *gorm.DB) error {
		stmts := []string{
			`CREATE UNIQUE INDEX idx_calendar_placeholder ON calendar_entries (travel_date, route_id) WHERE link_id IS NULL`,
			`CREATE UNIQUE INDEX idx_calendar_phone ON calendar_entries (travel_date, route_id, link_phone)`,
		}
		for _, s := range stmts {
			if err := tx.Exec(s).Error; err != nil {
				return err
			}
		}
		return nil
	}},
	{Version: 3, Name: "seed route slot counter", Up: func(tx *gorm.DB) error {
		return tx.Create(&models.SlotCounter{Name: models.RouteSlotCounter, Value: 0}).Error
	}},
}

// Up applies every pending step, each in its own transaction.
func Up(db *gorm.DB) error {
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied []int
	if err := db.Model(&SchemaMigration{}).Pluck("version", &applied).Error; err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, step := range Steps {
		if done[step.Version] {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := step.Up(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Version: step.Version, Name: step.Name, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", step.Version, step.Name, err)
		}
		logrus.WithFields(logrus.Fields{"version": step.Version, "name": step.Name}).Info("Migration applied.")
	}
	return nil
}

// Version returns the highest applied step, or 0 on an empty database.
func Version(db *gorm.DB) (int, error) {
	var v int
	err := db.Model(&SchemaMigration{}).Select("COALESCE(MAX(version), 0)").Scan(&v).Error
	return v, err
}
