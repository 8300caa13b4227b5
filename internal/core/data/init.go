package data

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// Initialize opens the database connection shared by the process and
// migrates the schema. engine selects the driver: "sqlite" (dataSource is
// a filename) or "postgres" (dataSource is a DSN).
func Initialize(engine, dataSource string, debug bool) error {
	// By default only log errors but enable full SQL query prints-to-console with debug mode.
	log := logger.Default.LogMode(logger.Error)
	if debug {
		log = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch engine {
	case "sqlite":
		// Writers from concurrent sessions must queue rather than surface
		// SQLITE_BUSY to the table.
		dialector = sqlite.Open(dataSource + "?_pragma=busy_timeout(5000)")
	case "postgres":
		dialector = postgres.Open(dataSource)
	default:
		return fmt.Errorf("unsupported database engine: %s", engine)
	}

	var err error
	db, err = gorm.Open(dialector, &gorm.Config{Logger: log})
	if err != nil {
		return fmt.Errorf("error connecting to database: %s", err)
	}

	if engine == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("error configuring connection pool: %s", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err = db.AutoMigrate(&Player{}); err != nil {
		return fmt.Errorf("error auto migrating db: %s", err)
	}

	return nil
}

// DB returns the database handle initialized by Initialize.
func DB() *gorm.DB {
	return db
}

func Shutdown() error {
	database, err := db.DB()
	if err != nil {
		return fmt.Errorf("error while getting current connection: %w", err)
	}
	if err := database.Close(); err != nil {
		return fmt.Errorf("error while closing database connection: %w", err)
	}
	return nil
}
