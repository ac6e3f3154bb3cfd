package database

import (
	"log"
	"time"

	"go-cargo-portal/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the shared connection pool and syncs the schema.
// The pool is process-wide: handlers reuse it, nothing else holds state.
func Connect(dsn string) {
	if dsn == "" {
		log.Fatal("Error: DB_DSN not set. Please configure your database.")
	}

	var err error

	// Wait for the DB to be ready (docker-compose startup ordering)
	for i := 0; i < 5; i++ {
		DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err == nil {
			break
		}
		log.Printf("Failed to connect to database. Retrying in 2 seconds... (%d/5)", i+1)
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		log.Fatal("Failed to connect to database after 5 attempts:", err)
	}

	// Bound the pool so a traffic spike doesn't exhaust MySQL connections
	if sqlDB, err := DB.DB(); err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Println("Connected to MySQL")

	if err := Migrate(DB); err != nil {
		log.Fatal("Failed to migrate schema:", err)
	}

	log.Println("Database schema synced")
}

// Migrate runs AutoMigrate for every model. Split out so tests can run it
// against their own database handle.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Package{},
		&models.PackageEvent{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.Payment{},
		&models.PreAlert{},
		&models.PricingRule{},
		&models.InventoryItem{},
		&models.WarehouseKey{},
		&models.AuditLog{},
		&models.OutboxJob{},
	)
}
