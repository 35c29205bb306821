package database

import (
	"fmt"
	"log"
	"strings"

	"github.com/medadvisor/advisor-api/internal/models"
	"gorm.io/gorm"
)

type compositeIndex struct {
	model   any
	name    string
	columns []string
}

// Indexes for the assignee lookups of the notification pass and the per-plan listings.
var compositeIndexes = []compositeIndex{
	{&models.Task{}, "idx_tasks_assignee_status", []string{"assigned_to_id", "status"}},
	{&models.Task{}, "idx_tasks_plan_client", []string{"plan_id", "client_id"}},
	{&models.Client{}, "idx_clients_city_department", []string{"city", "department"}},
	{&models.BackupOperation{}, "idx_backup_operations_kind_created", []string{"kind", "created_at"}},
}

// AddIndexes creates the composite indexes that struct tags do not declare
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()

	for _, idx := range compositeIndexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}

		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(idx.model); err != nil {
			return fmt.Errorf("failed to parse model for index %s: %w", idx.name, err)
		}

		err := db.Exec(fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
			quote(db, idx.name), quote(db, stmt.Schema.Table), joinQuoted(db, idx.columns))).Error
		if err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Printf("Created index %s on %s", idx.name, stmt.Schema.Table)
	}

	return nil
}

// MigrateDatabase runs the migrations that follow AutoMigrate
func MigrateDatabase(db *gorm.DB) error {
	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}
	return nil
}

func quote(db *gorm.DB, name string) string {
	return db.Statement.Quote(name)
}

func joinQuoted(db *gorm.DB, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quote(db, c)
	}
	return strings.Join(quoted, ", ")
}
