// Package objectsource stores one JSON object per entity in an S3-compatible
// bucket, named <prefix>/<type>/<id>.json.
package objectsource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"entity-sync/core/entity"
	"entity-sync/core/source"
	"entity-sync/core/storage"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

const extension = ".json"

// Source is a minio-backed source.Source.
type Source struct {
	name   string
	client storage.Client
	bucket string
	prefix string
	fields source.Fields
	now    func() time.Time

	// The bucket offers no compare-and-set; mu serializes this process's
	// read-check-write sequences.
	mu sync.Mutex
}

// Option configures a Source.
type Option func(*Source)

// WithPrefix sets the object name prefix.
func WithPrefix(prefix string) Option {
	return func(s *Source) { s.prefix = strings.Trim(prefix, "/") }
}

// WithFields overrides the id, version and timestamp field names.
func WithFields(f source.Fields) Option {
	return func(s *Source) { s.fields = f.WithDefaults() }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// New creates a source storing objects in bucket.
func New(name string, client storage.Client, bucket string, opts ...Option) *Source {
	s := &Source{
		name:   name,
		client: client,
		bucket: bucket,
		fields: source.DefaultFields(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements source.Source.
func (s *Source) Name() string { return s.name }

// ObjectName returns the object key of entityType/id.
func (s *Source) ObjectName(entityType, id string) string {
	return path.Join(s.prefix, entityType, id+extension)
}

// Fetch implements source.Source.
func (s *Source) Fetch(ctx context.Context, entityType string, params map[string]string) ([]entity.Entity, error) {
	dir := path.Join(s.prefix, entityType) + "/"
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    dir,
		Recursive: true,
	})

	out := make([]entity.Entity, 0)
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", dir, obj.Err)
		}
		if !strings.HasSuffix(obj.Key, extension) {
			continue
		}
		e, err := s.read(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		if e != nil && source.Matches(e, params) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Create implements source.Source.
func (s *Source) Create(ctx context.Context, entityType string, e entity.Entity) (entity.Entity, error) {
	id := s.fields.ID(e)
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(ctx, s.ObjectName(entityType, id))
	if err != nil {
		return nil, err
	}
	return s.write(ctx, entityType, id, e, s.fields.VersionOf(current)+1)
}

// Update implements source.Source.
func (s *Source) Update(ctx context.Context, entityType, id string, e entity.Entity, baseVersion int64) (entity.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(ctx, s.ObjectName(entityType, id))
	if err != nil {
		return nil, err
	}
	if err := s.fields.CheckVersion(entityType, id, current, baseVersion); err != nil {
		return nil, err
	}
	if current == nil {
		return nil, source.ErrNotFound
	}
	return s.write(ctx, entityType, id, e, s.fields.VersionOf(current)+1)
}

// Delete implements source.Source.
func (s *Source) Delete(ctx context.Context, entityType, id string, baseVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.ObjectName(entityType, id)
	if baseVersion != 0 {
		current, err := s.read(ctx, name)
		if err != nil {
			return err
		}
		if err := s.fields.CheckVersion(entityType, id, current, baseVersion); err != nil {
			return err
		}
	}
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		if storage.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// read returns nil without error when the object does not exist.
func (s *Source) read(ctx context.Context, name string) (entity.Entity, error) {
	rc, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	var e entity.Entity
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return e, nil
}

func (s *Source) write(ctx context.Context, entityType, id string, e entity.Entity, version int64) (entity.Entity, error) {
	value := s.fields.Stamp(e, id, version, s.now())
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s/%s: %w", entityType, id, err)
	}

	name := s.ObjectName(entityType, id)
	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put %s: %w", name, err)
	}
	return value, nil
}
