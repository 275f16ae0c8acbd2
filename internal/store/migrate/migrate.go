// Package migrate runs gorm auto-migrations against the durable tier
// internal/blockstore persists to, tracking which migrations have already
// run so a redeploy never re-applies one.
package migrate

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/chainforge/subgraph-core/internal/blockstore"
)

// Migration is one schema change: Up applies it, Down reverts it, Version
// identifies it so the tracking table can tell whether it already ran.
type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
	Version() string
	Description() string
}

// migrationRecord tracks which migrations have already run.
type migrationRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Version   string `gorm:"uniqueIndex;not null"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"`
}

func (migrationRecord) TableName() string { return "schema_migrations" }

// Migrator applies an ordered list of Migrations against db, skipping any
// whose Version has already been recorded.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

// New builds a Migrator with the standard migration set for the block
// cache's durable tier: the cached_blocks table itself, plus the
// number index a range-scoped reconciliation query needs.
func New(db *gorm.DB) *Migrator {
	return &Migrator{
		db: db,
		migrations: []Migration{
			&cachedBlocksSchema{},
			&cachedBlocksNumberIndex{},
		},
	}
}

// AddMigration appends an additional migration, for a caller extending the
// durable tier with its own tables.
func (m *Migrator) AddMigration(migration Migration) {
	m.migrations = append(m.migrations, migration)
}

// Run applies every pending migration in registration order.
func (m *Migrator) Run() error {
	if err := m.db.AutoMigrate(&migrationRecord{}); err != nil {
		return fmt.Errorf("create migration tracking table: %w", err)
	}

	var done []migrationRecord
	if err := m.db.Find(&done).Error; err != nil {
		return fmt.Errorf("list applied migrations: %w", err)
	}
	applied := make(map[string]struct{}, len(done))
	for _, rec := range done {
		applied[rec.Version] = struct{}{}
	}

	for _, migration := range m.migrations {
		if _, ok := applied[migration.Version()]; ok {
			continue
		}
		if err := migration.Up(m.db); err != nil {
			return fmt.Errorf("migration %s (%s): %w", migration.Version(), migration.Description(), err)
		}
		if err := m.db.Create(&migrationRecord{Version: migration.Version()}).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", migration.Version(), err)
		}
	}
	return nil
}

// cachedBlocksSchema creates blockstore's durable-tier table via gorm's
// AutoMigrate, the same way blockstore.Store.Migrate does on its own —
// kept here too so a deployment that runs migrations as a separate step
// (rather than at scanner startup) doesn't need to import blockstore
// directly to provision its schema.
type cachedBlocksSchema struct{}

func (cachedBlocksSchema) Up(db *gorm.DB) error   { return db.AutoMigrate(&blockstore.Record{}) }
func (cachedBlocksSchema) Down(db *gorm.DB) error { return db.Migrator().DropTable(&blockstore.Record{}) }
func (cachedBlocksSchema) Version() string        { return "20260101000001" }
func (cachedBlocksSchema) Description() string    { return "create cached_blocks table" }

// cachedBlocksNumberIndex adds the index a "give me every cached block in
// [from, to]" reconciliation query would scan, beyond the primary-key hash
// lookup blockstore.Store.Get already uses.
type cachedBlocksNumberIndex struct{}

func (cachedBlocksNumberIndex) Up(db *gorm.DB) error {
	return db.Exec("CREATE INDEX IF NOT EXISTS idx_cached_blocks_number ON cached_blocks (number)").Error
}
func (cachedBlocksNumberIndex) Down(db *gorm.DB) error {
	return db.Exec("DROP INDEX IF EXISTS idx_cached_blocks_number").Error
}
func (cachedBlocksNumberIndex) Version() string     { return "20260101000002" }
func (cachedBlocksNumberIndex) Description() string { return "index cached_blocks by number" }
