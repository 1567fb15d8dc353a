package tokenstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	portal "github.com/carelink/portal-go"
)

type entry struct {
	Name  string `gorm:"primaryKey"`
	Value string
}

func (entry) TableName() string { return "credentials" }

// File is a durable TokenStore backed by a sqlite file. The driver is
// pure Go, so the store works without cgo. Writes are synchronous: a Set
// is visible to the next Get.
type File struct {
	mu sync.Mutex
	db *gorm.DB
}

// compile-time check
var _ portal.TokenStore = (*File)(nil)

// OpenFile opens (creating if needed) the store at the given path.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("portal/tokenstore: path cannot be empty")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("portal/tokenstore: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("portal/tokenstore: migrate: %w", err)
	}

	return &File{db: db}, nil
}

// Get returns the stored value, and false if the entry is absent.
func (f *File) Get(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var e entry
	err := f.db.Where("name = ?", name).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false
	}
	if err != nil {
		return "", false
	}
	return e.Value, true
}

// Set stores the value under the given name, replacing any existing entry.
func (f *File) Set(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.db.Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&entry{Name: name, Value: value}).Error
	if err != nil {
		return fmt.Errorf("portal/tokenstore: set %s: %w", name, err)
	}
	return nil
}

// Clear removes the entry. Clearing an absent entry is a no-op.
func (f *File) Clear(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.db.Delete(&entry{}, "name = ?", name).Error; err != nil {
		return fmt.Errorf("portal/tokenstore: clear %s: %w", name, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (f *File) Close() error {
	sqlDB, err := f.db.DB()
	if err != nil {
		return fmt.Errorf("portal/tokenstore: close: %w", err)
	}
	return sqlDB.Close()
}
