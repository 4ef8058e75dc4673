package database

import (
	"fmt"

	"dropnest_backend/internal/config"
	"dropnest_backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var gormDB *gorm.DB

// ConnectGorm opens (or returns the cached) GORM connection.
func ConnectGorm() (*gorm.DB, error) {
	if gormDB != nil {
		return gormDB, nil
	}

	cfg := config.GetConfig()
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to GORM: %w", err)
	}

	gormDB = db
	return db, nil
}

// AutoMigrate creates the schema and the invariant constraints the ORM tags
// cannot express.
func AutoMigrate() error {
	db, err := ConnectGorm()
	if err != nil {
		return err
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return fmt.Errorf("failed to enable uuid-ossp: %w", err)
	}

	err = db.AutoMigrate(
		&models.Account{},
		&models.Workspace{},
		&models.Folder{},
		&models.CollectionLink{},
		&models.Batch{},
		&models.File{},
		&models.Permission{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Usage counters must never go negative or exceed their ceilings even if
	// application code regresses.
	constraints := []string{
		`ALTER TABLE accounts DROP CONSTRAINT IF EXISTS chk_accounts_usage;
		 ALTER TABLE accounts ADD CONSTRAINT chk_accounts_usage
		 CHECK (usage_used >= 0 AND usage_used <= usage_limit)`,
		`ALTER TABLE collection_links DROP CONSTRAINT IF EXISTS chk_links_usage;
		 ALTER TABLE collection_links ADD CONSTRAINT chk_links_usage
		 CHECK (usage_used >= 0 AND usage_used <= usage_limit)`,
		`ALTER TABLE collection_links DROP CONSTRAINT IF EXISTS chk_links_files;
		 ALTER TABLE collection_links ADD CONSTRAINT chk_links_files
		 CHECK (file_count >= 0 AND file_count <= max_files)`,
		`ALTER TABLE folders DROP CONSTRAINT IF EXISTS chk_folders_depth;
		 ALTER TABLE folders ADD CONSTRAINT chk_folders_depth
		 CHECK (depth >= 1 AND depth <= 20)`,
		// The composite index on (parent_id, name) treats NULL parents as
		// distinct, so root folder names need their own uniqueness guard.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_folders_root_name
		 ON folders (workspace_id, name) WHERE parent_id IS NULL`,
	}
	for _, stmt := range constraints {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to apply constraint: %w", err)
		}
	}

	return nil
}
