// Package store persists model and adapter metadata in a relational database
// through gorm. SQLite (pure Go) is the default; postgres is selected by driver.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"frequency/pkg/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Config selects the database. Driver is "sqlite" (Path) or "postgres" (DSN).
type Config struct {
	Driver string
	Path   string
	DSN    string
}

// Store is a gorm-backed metadata store.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database and migrates the schema.
func Open(cfg Config, log zerolog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.Path)
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres driver requires a dsn")
		}
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", cfg.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(log)})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if err := db.AutoMigrate(&adapterRow{}, &modelRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveModel upserts m and replaces its adapter links with m.Adapters.
func (s *Store) SaveModel(ctx context.Context, m types.Model) error {
	row := fromModel(m)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Omit(clause.Associations).Create(&row).Error; err != nil {
			return fmt.Errorf("save model %s: %w", m.Name, err)
		}
		return replaceLinks(tx, &row, m.Adapters)
	})
}

// SetModelAdapters replaces the adapter links of an existing model. Names
// without an adapter record are dropped.
func (s *Store) SetModelAdapters(ctx context.Context, model string, adapters []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row modelRow
		if err := tx.First(&row, "name = ?", model).Error; err != nil {
			return notFound(err)
		}
		return replaceLinks(tx, &row, adapters)
	})
}

func replaceLinks(tx *gorm.DB, row *modelRow, names []string) error {
	assoc := tx.Model(row).Association("Adapters")
	if len(names) == 0 {
		return assoc.Clear()
	}
	var adapters []adapterRow
	if err := tx.Where("name IN ?", names).Find(&adapters).Error; err != nil {
		return err
	}
	if len(adapters) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(adapters)
}

// FindModel returns the model named name.
func (s *Store) FindModel(ctx context.Context, name string) (types.Model, error) {
	var row modelRow
	if err := s.db.WithContext(ctx).Preload("Adapters").First(&row, "name = ?", name).Error; err != nil {
		return types.Model{}, notFound(err)
	}
	m := toModel(row)
	sort.Strings(m.Adapters)
	return m, nil
}

// ListModels returns all models ordered by name.
func (s *Store) ListModels(ctx context.Context) ([]types.Model, error) {
	var rows []modelRow
	if err := s.db.WithContext(ctx).Preload("Adapters").Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Model, 0, len(rows))
	for _, r := range rows {
		m := toModel(r)
		sort.Strings(m.Adapters)
		out = append(out, m)
	}
	return out, nil
}

// DeleteModel removes the model and its adapter links. Adapter records are kept.
func (s *Store) DeleteModel(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM "+linkTable+" WHERE model_name = ?", name).Error; err != nil {
			return err
		}
		res := tx.Delete(&modelRow{}, "name = ?", name)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SaveAdapter upserts a.
func (s *Store) SaveAdapter(ctx context.Context, a types.Adapter) error {
	row := fromAdapter(a)
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("save adapter %s: %w", a.Name, err)
	}
	return nil
}

// FindAdapter returns the adapter named name.
func (s *Store) FindAdapter(ctx context.Context, name string) (types.Adapter, error) {
	var row adapterRow
	if err := s.db.WithContext(ctx).First(&row, "name = ?", name).Error; err != nil {
		return types.Adapter{}, notFound(err)
	}
	return toAdapter(row), nil
}

// ListAdapters returns all adapters ordered by name.
func (s *Store) ListAdapters(ctx context.Context) ([]types.Adapter, error) {
	var rows []adapterRow
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Adapter, 0, len(rows))
	for _, r := range rows {
		out = append(out, toAdapter(r))
	}
	return out, nil
}

// DeleteAdapter removes the adapter and any links to it.
func (s *Store) DeleteAdapter(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM "+linkTable+" WHERE adapter_name = ?", name).Error; err != nil {
			return err
		}
		res := tx.Delete(&adapterRow{}, "name = ?", name)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
