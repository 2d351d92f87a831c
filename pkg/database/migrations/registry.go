package migrations

import (
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"
)

// Migration is a named schema step that runs after AutoMigrate.
// Steps must be idempotent; they run on every boot with migrations enabled.
type Migration struct {
	Name string
	// Postgres marks steps that use postgres-only DDL.
	Postgres bool
	Fn       func(*gorm.DB) error
}

var (
	registryMu sync.RWMutex
	registry   []Migration
)

// Register appends a migration. Registration order is execution order.
func Register(m Migration) {
	registryMu.Lock()
	defer registryMu.Unlock()

	for _, existing := range registry {
		if existing.Name == m.Name {
			panic(fmt.Sprintf("migrations: duplicate name %q", m.Name))
		}
	}
	registry = append(registry, m)
}

// Registered returns a snapshot of the registry.
func Registered() []Migration {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Migration, len(registry))
	copy(out, registry)
	return out
}

// Run executes the registered migrations in order. Postgres-only steps are
// skipped on other dialects.
func Run(db *gorm.DB, log *slog.Logger) error {
	postgres := db.Dialector.Name() == "postgres"

	for _, m := range Registered() {
		if m.Postgres && !postgres {
			log.Debug("skipping postgres migration", slog.String("name", m.Name))
			continue
		}
		if err := m.Fn(db); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
		log.Info("migration applied", slog.String("name", m.Name))
	}
	return nil
}
