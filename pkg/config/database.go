package config

import (
	"fmt"
	"os"
	"time"

	"divisionone/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB initializes the database connection
func InitDB() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database instance: ", err)
	}

	// ledger commits hold one connection per transaction
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db

	err = DB.AutoMigrate(
		&models.LedgerAccount{},
		&models.ProgramEvent{},
		&models.SupplySnapshot{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database: ", err)
	}
}

// DatabaseConfigured reports whether the DB_* variables point at a database.
func DatabaseConfigured() bool {
	return os.Getenv("DB_HOST") != ""
}
