package models

import (
	"log"

	"github.com/mmdatafocus/ledgermirror_backend/config"
)

// MigrateTable runs AutoMigrate for every mirrored entity.
func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&ProviderConfig{},
		&SyncRun{},
		&AccountingDocument{},
		&BankMovement{},
		&JournalEntry{},
		&Contact{},
	)
	if err != nil {
		log.Fatalf("auto migrate failed: %v", err)
	}
}
