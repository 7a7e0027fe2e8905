package sync

import (
	"context"
	"errors"
	"fmt"

	"entity-sync/core/conflict"
	"entity-sync/core/entity"
	"entity-sync/core/normalize"
	"entity-sync/core/schema"
	"entity-sync/core/source"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Create stores payload as a new entity. An empty id is taken from the
// payload, or generated. It returns the value held by the store afterwards.
func (e *Engine) Create(ctx context.Context, entityType, id string, payload map[string]any) (entity.Entity, error) {
	return e.mutate(ctx, OpCreate, entityType, id, payload)
}

// Update deep-merges payload onto the entity and pushes the result.
func (e *Engine) Update(ctx context.Context, entityType, id string, payload map[string]any) (entity.Entity, error) {
	if id == "" {
		return nil, fmt.Errorf("update %s: id must not be empty", entityType)
	}
	return e.mutate(ctx, OpUpdate, entityType, id, payload)
}

// Delete removes the entity locally and remotely.
func (e *Engine) Delete(ctx context.Context, entityType, id string) error {
	if id == "" {
		return fmt.Errorf("delete %s: id must not be empty", entityType)
	}
	_, err := e.mutate(ctx, OpDelete, entityType, id, nil)
	return err
}

func (e *Engine) mutate(ctx context.Context, kind OpKind, entityType, id string, payload map[string]any) (entity.Entity, error) {
	sch, err := e.registry.Lookup(entityType)
	if err != nil {
		return nil, err
	}

	op := &Operation{
		ID:         uuid.NewString(),
		Kind:       kind,
		EntityType: entityType,
		EntityID:   id,
		CreatedAt:  e.now(),
	}

	if kind != OpDelete {
		if err := e.preparePayload(op, sch, payload); err != nil {
			return nil, err
		}
	}

	e.mu.Lock()
	e.seq++
	op.Seq = e.seq
	e.mu.Unlock()

	return e.execute(ctx, op)
}

// preparePayload normalizes payload so nested entities are split out.
func (e *Engine) preparePayload(op *Operation, sch *schema.EntitySchema, payload map[string]any) error {
	data := entity.DeepCopy(payload)
	m, _ := entity.AsMap(data)
	if m == nil {
		m = map[string]any{}
	}
	if op.EntityID == "" {
		if id, ok := sch.ID(m); ok {
			op.EntityID = id
		} else {
			op.EntityID = uuid.NewString()
		}
	}
	m[sch.IDAttribute] = op.EntityID

	res, err := normalize.Normalize(m, sch)
	if err != nil {
		return err
	}
	root, _ := res.Entities.Get(sch.Key, op.EntityID)
	res.Entities.Delete(sch.Key, op.EntityID)
	op.Patch = root
	if res.Entities.Len() > 0 {
		op.Related = res.Entities
	}
	return nil
}

// execute applies op locally, then pushes it or queues it.
func (e *Engine) execute(ctx context.Context, op *Operation) (entity.Entity, error) {
	if err := e.applyLocal(op); err != nil {
		return nil, err
	}

	e.mu.Lock()
	queue := !e.online || len(e.queue) > 0
	online := e.online
	if queue {
		e.queue = append(e.queue, op)
	} else {
		e.inflight[op.key()]++
	}
	e.mu.Unlock()

	if queue {
		e.log.record(op, op.images[0].pre, TxQueued, e.now())
		e.metrics.RecordOperation(string(op.Kind), op.EntityType, "queued")
		e.touch(op.EntityType)
		e.logger.Debug("Queued operation",
			zap.String("entity_type", op.EntityType),
			zap.String("entity_id", op.EntityID),
			zap.Uint64("seq", op.Seq),
		)
		if online {
			if _, err := e.replay(ctx); err != nil {
				e.logger.Warn("Queue replay stopped", zap.Error(err))
			}
		}
		current, _ := e.store.Entity(op.EntityType, op.EntityID)
		return current, nil
	}

	e.log.record(op, op.images[0].pre, TxApplied, e.now())
	remote, pushErr := e.push(ctx, op)

	e.mu.Lock()
	if e.inflight[op.key()]--; e.inflight[op.key()] <= 0 {
		delete(e.inflight, op.key())
	}
	e.mu.Unlock()

	return e.settle(ctx, op, remote, pushErr, true)
}

// applyLocal publishes the optimistic change and records the pre-images on
// op, root entity first.
func (e *Engine) applyLocal(op *Operation) error {
	var images []image
	err := e.store.Apply(func(draft entity.Entities) error {
		images = images[:0]
		pre, exists := draft.Get(op.EntityType, op.EntityID)
		if !exists {
			pre = nil
		}
		images = append(images, image{key: op.key(), pre: pre.Clone()})
		if !op.pinnedBase {
			op.BaseVersion = e.versionOf(pre)
		}

		switch op.Kind {
		case OpDelete:
			op.Post = nil
			draft.Delete(op.EntityType, op.EntityID)
		case OpCreate:
			op.Post = op.Patch.Clone()
			draft.Set(op.EntityType, op.EntityID, op.Post.Clone())
		case OpUpdate:
			if pre == nil || op.replace {
				op.Post = op.Patch.Clone()
			} else {
				op.Post = entity.MergeEntity(pre, op.Patch)
			}
			draft.Set(op.EntityType, op.EntityID, op.Post.Clone())
		}

		for _, t := range op.Related.Types() {
			for id, related := range op.Related[t] {
				current, ok := draft.Get(t, id)
				if ok {
					images = append(images, image{key: entityKey{t, id}, pre: current.Clone()})
					draft.Set(t, id, entity.MergeEntity(current, related))
				} else {
					images = append(images, image{key: entityKey{t, id}})
					draft.Set(t, id, related.Clone())
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	op.images = images
	return nil
}

// push sends op to the primary source.
func (e *Engine) push(ctx context.Context, op *Operation) (entity.Entity, error) {
	primary := e.sources[0]
	var remote entity.Entity
	err := e.call(ctx, primary, string(op.Kind), func(ctx context.Context) error {
		var err error
		switch op.Kind {
		case OpCreate:
			remote, err = primary.Create(ctx, op.EntityType, op.Post)
		case OpUpdate:
			remote, err = primary.Update(ctx, op.EntityType, op.EntityID, op.Post, op.BaseVersion)
		case OpDelete:
			err = primary.Delete(ctx, op.EntityType, op.EntityID, op.BaseVersion)
		}
		return err
	})
	return remote, err
}

// settle handles the outcome of a push. With rollback set, a failure
// restores the pre-images and moves op to the failed list; otherwise the
// caller decides what happens to op.
func (e *Engine) settle(ctx context.Context, op *Operation, remote entity.Entity, pushErr error, rollback bool) (entity.Entity, error) {
	op.Attempts++
	images := op.images

	var ce *source.ConflictError
	switch {
	case pushErr == nil:
		e.commit(op, remote)
		e.log.record(op, images[0].pre, TxCommitted, e.now())
		e.metrics.RecordOperation(string(op.Kind), op.EntityType, "success")
		e.mirror(ctx, op, remote)
		e.settleState(op.EntityType, 0)
		current, _ := e.store.Entity(op.EntityType, op.EntityID)
		return current, nil

	case errors.As(pushErr, &ce):
		c := e.recordConflict(op.EntityType, op.EntityID, op.localValue(images[0].pre), ce.Remote, op.BaseVersion, ce.RemoteVersion)
		e.log.record(op, images[0].pre, TxConflict, e.now())
		e.metrics.RecordOperation(string(op.Kind), op.EntityType, "conflict")
		e.setState(op.EntityType, StateConflict, "")
		current, _ := e.store.Entity(op.EntityType, op.EntityID)
		return current, &ConflictError{Conflict: c, Err: pushErr}

	default:
		syncErr := newSyncError(string(op.Kind), op.EntityType, op.EntityID, e.sources[0].Name(), pushErr)
		op.LastError = pushErr.Error()
		if rollback {
			e.rollback(images)
			e.log.record(op, images[0].pre, TxRolledBack, e.now())
			e.mu.Lock()
			e.failed = append(e.failed, op)
			e.mu.Unlock()
		}
		e.metrics.RecordOperation(string(op.Kind), op.EntityType, "error")
		e.setState(op.EntityType, StateError, syncErr.Error())
		e.logger.Warn("Push failed",
			zap.String("entity_type", op.EntityType),
			zap.String("entity_id", op.EntityID),
			zap.Bool("retryable", syncErr.Retryable),
			zap.Error(pushErr),
		)
		return nil, syncErr
	}
}

// localValue is the local side of a conflict raised by op.
func (op *Operation) localValue(pre entity.Entity) entity.Entity {
	if op.Kind == OpDelete {
		return nil
	}
	if op.Post != nil {
		return op.Post
	}
	return pre
}

// commit stores the authoritative value returned by the primary and rebases
// later queued operations on the same entity.
func (e *Engine) commit(op *Operation, remote entity.Entity) {
	newVersion := e.versionOf(remote)

	e.mu.Lock()
	laterPending := false
	for _, queued := range e.queue {
		if queued == op || queued.key() != op.key() {
			continue
		}
		laterPending = true
		if queued.BaseVersion == op.BaseVersion {
			queued.BaseVersion = newVersion
		}
	}
	e.mu.Unlock()

	if op.Kind == OpDelete || remote == nil {
		return
	}
	_ = e.store.Apply(func(draft entity.Entities) error {
		if !laterPending {
			draft.Set(op.EntityType, op.EntityID, remote.Clone())
			return nil
		}
		// Keep the newer optimistic value, adopt only the version.
		current, ok := draft.Get(op.EntityType, op.EntityID)
		if !ok {
			return nil
		}
		current = current.Clone()
		current[e.cfg.VersionField] = remote[e.cfg.VersionField]
		draft.Set(op.EntityType, op.EntityID, current)
		return nil
	})
}

// rollback restores every pre-image.
func (e *Engine) rollback(images []image) {
	_ = e.store.Apply(func(draft entity.Entities) error {
		for _, img := range images {
			if img.pre == nil {
				draft.Delete(img.key.entityType, img.key.id)
				continue
			}
			draft.Set(img.key.entityType, img.key.id, img.pre.Clone())
		}
		return nil
	})
}

// mirror copies a committed change to the secondary sources. Failures are
// logged only.
func (e *Engine) mirror(ctx context.Context, op *Operation, remote entity.Entity) {
	for _, src := range e.sources[1:] {
		err := e.call(ctx, src, "mirror", func(ctx context.Context) error {
			if op.Kind == OpDelete {
				return src.Delete(ctx, op.EntityType, op.EntityID, 0)
			}
			_, err := src.Create(ctx, op.EntityType, remote)
			return err
		})
		if err != nil {
			e.logger.Warn("Mirror failed",
				zap.String("source", src.Name()),
				zap.String("entity_type", op.EntityType),
				zap.String("entity_id", op.EntityID),
				zap.Error(err),
			)
		}
	}
}

// recordConflict opens a conflict for the entity, replacing an older open
// conflict on the same entity.
func (e *Engine) recordConflict(entityType, id string, local, remote entity.Entity, localVersion, remoteVersion int64) *conflict.SyncConflict {
	c := conflict.New(entityType, id, local, remote, localVersion, remoteVersion, e.now())

	e.mu.Lock()
	for existingID, existing := range e.conflicts {
		if existing.EntityType == entityType && existing.EntityID == id {
			delete(e.conflicts, existingID)
		}
	}
	e.conflicts[c.ID] = c
	e.mu.Unlock()

	e.metrics.RecordConflict(entityType)
	e.logger.Info("Conflict detected",
		zap.String("conflict_id", c.ID),
		zap.String("entity_type", entityType),
		zap.String("entity_id", id),
		zap.Int64("local_version", localVersion),
		zap.Int64("remote_version", remoteVersion),
	)
	return c
}
