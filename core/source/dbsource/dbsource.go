// Package dbsource stores entities as JSON rows in a SQL database through
// gorm. Each row carries its entity type, id, version and encoded payload in
// the entity_records table.
package dbsource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"entity-sync/core/entity"
	"entity-sync/core/source"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Record is one stored entity.
type Record struct {
	EntityType string    `gorm:"column:entity_type;primaryKey;size:64"`
	EntityID   string    `gorm:"column:entity_id;primaryKey;size:191"`
	Version    int64     `gorm:"column:version;not null"`
	Data       string    `gorm:"column:data;type:text;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

// Columns lists the columns of entity_records.
var Columns = []string{"entity_type", "entity_id", "version", "data", "updated_at"}

// TableName implements gorm's tabler.
func (Record) TableName() string {
	return "entity_records"
}

// Source is a gorm-backed source.Source.
type Source struct {
	name   string
	db     *gorm.DB
	fields source.Fields
	now    func() time.Time
}

// Option configures a Source.
type Option func(*Source)

// WithFields overrides the id, version and timestamp field names.
func WithFields(f source.Fields) Option {
	return func(s *Source) { s.fields = f.WithDefaults() }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// New creates a source over db.
func New(name string, db *gorm.DB, opts ...Option) *Source {
	s := &Source{
		name:   name,
		db:     db,
		fields: source.DefaultFields(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates or updates the entity_records table.
func (s *Source) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", Record{}.TableName(), err)
	}
	return nil
}

// Name implements source.Source.
func (s *Source) Name() string { return s.name }

// DB returns the underlying connection.
func (s *Source) DB() *gorm.DB { return s.db }

// Fetch implements source.Source. Params are applied after decoding.
func (s *Source) Fetch(ctx context.Context, entityType string, params map[string]string) ([]entity.Entity, error) {
	var records []Record
	err := s.db.WithContext(ctx).
		Where("entity_type = ?", entityType).
		Order("entity_id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", entityType, err)
	}

	out := make([]entity.Entity, 0, len(records))
	for _, rec := range records {
		e, err := s.decode(rec)
		if err != nil {
			return nil, err
		}
		if source.Matches(e, params) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Create implements source.Source. Creating an existing id overwrites it
// with the next version.
func (s *Source) Create(ctx context.Context, entityType string, e entity.Entity) (entity.Entity, error) {
	id := s.fields.ID(e)
	if id == "" {
		id = uuid.NewString()
	}

	var stored entity.Entity
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.find(tx, entityType, id)
		if err != nil {
			return err
		}
		var version int64 = 1
		if current != nil {
			version = current.Version + 1
		}
		rec, value, err := s.encode(entityType, id, e, version)
		if err != nil {
			return err
		}
		if current == nil {
			err = tx.Create(rec).Error
		} else {
			err = tx.Save(rec).Error
		}
		if err != nil {
			return fmt.Errorf("failed to store %s/%s: %w", entityType, id, err)
		}
		stored = value
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Update implements source.Source.
func (s *Source) Update(ctx context.Context, entityType, id string, e entity.Entity, baseVersion int64) (entity.Entity, error) {
	var stored entity.Entity
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.find(tx, entityType, id)
		if err != nil {
			return err
		}
		if err := s.checkVersion(entityType, id, current, baseVersion); err != nil {
			return err
		}
		if current == nil {
			return source.ErrNotFound
		}

		rec, value, err := s.encode(entityType, id, e, current.Version+1)
		if err != nil {
			return err
		}
		res := tx.Model(&Record{}).
			Where("entity_type = ? AND entity_id = ? AND version = ?", entityType, id, current.Version).
			Updates(map[string]any{
				"version":    rec.Version,
				"data":       rec.Data,
				"updated_at": rec.UpdatedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update %s/%s: %w", entityType, id, res.Error)
		}
		if res.RowsAffected == 0 {
			return &source.ConflictError{EntityType: entityType, EntityID: id, BaseVersion: current.Version}
		}
		stored = value
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Delete implements source.Source.
func (s *Source) Delete(ctx context.Context, entityType, id string, baseVersion int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.find(tx, entityType, id)
		if err != nil {
			return err
		}
		if err := s.checkVersion(entityType, id, current, baseVersion); err != nil {
			return err
		}
		if current == nil {
			return nil
		}
		err = tx.Where("entity_type = ? AND entity_id = ?", entityType, id).Delete(&Record{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete %s/%s: %w", entityType, id, err)
		}
		return nil
	})
}

// DeleteBatch removes ids of entityType in one statement, ignoring
// versions. Missing ids are skipped.
func (s *Source) DeleteBatch(ctx context.Context, entityType string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id IN ?", entityType, ids).
		Delete(&Record{}).Error
	if err != nil {
		return fmt.Errorf("failed to batch delete %d %s: %w", len(ids), entityType, err)
	}
	return nil
}

func (s *Source) find(tx *gorm.DB, entityType, id string) (*Record, error) {
	var rec Record
	err := tx.Where("entity_type = ? AND entity_id = ?", entityType, id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s/%s: %w", entityType, id, err)
	}
	return &rec, nil
}

func (s *Source) checkVersion(entityType, id string, current *Record, baseVersion int64) error {
	var value entity.Entity
	if current != nil {
		decoded, err := s.decode(*current)
		if err != nil {
			return err
		}
		value = decoded
	}
	return s.fields.CheckVersion(entityType, id, value, baseVersion)
}

func (s *Source) encode(entityType, id string, e entity.Entity, version int64) (*Record, entity.Entity, error) {
	now := s.now().UTC()
	value := s.fields.Stamp(e, id, version, now)
	data, err := json.Marshal(value)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode %s/%s: %w", entityType, id, err)
	}
	return &Record{
		EntityType: entityType,
		EntityID:   id,
		Version:    version,
		Data:       string(data),
		UpdatedAt:  now,
	}, value, nil
}

func (s *Source) decode(rec Record) (entity.Entity, error) {
	var e entity.Entity
	if err := json.Unmarshal([]byte(rec.Data), &e); err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", rec.EntityType, rec.EntityID, err)
	}
	if e == nil {
		e = entity.Entity{}
	}
	e[s.fields.IDAttribute] = rec.EntityID
	e[s.fields.Version] = rec.Version
	return e, nil
}
