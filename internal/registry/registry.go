package registry

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

const (
	DriverDatabase = "database"
	DriverMemory   = "memory"
)

// Open selects a Store implementation by name. An empty driver selects
// the database store.
func Open(driver string, db *gorm.DB, opts ...Option) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverDatabase, "gorm":
		return NewGormStore(db, opts...)
	case DriverMemory:
		return NewMemoryStore(opts...), nil
	default:
		return nil, fmt.Errorf("registry: unknown driver %q", driver)
	}
}
