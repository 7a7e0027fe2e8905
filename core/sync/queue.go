package sync

import (
	"context"
	"errors"
	"sort"

	"entity-sync/core/source"

	"go.uber.org/zap"
)

// ReplayResult summarizes an offline queue replay.
type ReplayResult struct {
	Replayed  int `json:"replayed"`
	Conflicts int `json:"conflicts"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

// RetryResult summarizes RetryFailed. Entries are operation ids.
type RetryResult struct {
	Succeeded []string `json:"succeeded"`
	Conflicts []string `json:"conflicts"`
	Failed    []string `json:"failed"`
}

// SetOnline flips the connectivity flag. Going online replays the offline
// queue; a non-nil error is the failure that stopped the replay.
func (e *Engine) SetOnline(ctx context.Context, online bool) (*ReplayResult, error) {
	e.mu.Lock()
	changed := e.online != online
	e.online = online
	types := make([]string, 0, len(e.statuses))
	for t := range e.statuses {
		types = append(types, t)
	}
	e.mu.Unlock()

	if changed {
		e.logger.Info("Connectivity changed", zap.Bool("online", online))
		sort.Strings(types)
		for _, t := range types {
			e.touch(t)
		}
	}
	if !online {
		return &ReplayResult{Remaining: e.PendingChanges()}, nil
	}
	return e.replay(ctx)
}

// replay pushes queued operations in sequence order, one at a time.
func (e *Engine) replay(ctx context.Context) (*ReplayResult, error) {
	e.replayMu.Lock()
	defer e.replayMu.Unlock()

	res := &ReplayResult{}
	for {
		e.mu.Lock()
		if !e.online || len(e.queue) == 0 {
			res.Remaining = len(e.queue)
			e.mu.Unlock()
			return res, nil
		}
		op := e.queue[0]
		e.mu.Unlock()

		remote, err := e.push(ctx, op)

		var ce *source.ConflictError
		if err != nil && !errors.As(err, &ce) && !source.IsPermanent(err) {
			op.Attempts++
			op.LastError = err.Error()
			syncErr := newSyncError(string(op.Kind), op.EntityType, op.EntityID, e.sources[0].Name(), err)
			e.metrics.RecordOperation("replay", op.EntityType, "error")
			e.setState(op.EntityType, StateError, syncErr.Error())
			res.Remaining = e.PendingChanges()
			return res, syncErr
		}

		e.dequeue(op)
		switch {
		case err == nil:
			res.Replayed++
			_, _ = e.settle(ctx, op, remote, nil, false)
		case ce != nil:
			res.Conflicts++
			_, _ = e.settle(ctx, op, remote, err, false)
		default:
			res.Failed++
			_, _ = e.settle(ctx, op, nil, err, false)
			e.discardQueued(op)
		}
		e.touch(op.EntityType)
	}
}

// dequeue removes op from the queue wherever it is.
func (e *Engine) dequeue(op *Operation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, queued := range e.queue {
		if queued == op {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			break
		}
	}
	e.metrics.SetQueueDepth(len(e.queue))
}

// discardQueued handles a permanently rejected queued op: it moves to the
// failed list, and its local effect is rolled back unless a later queued op
// still builds on it.
func (e *Engine) discardQueued(op *Operation) {
	e.mu.Lock()
	later := e.hasPendingLocked(op.key())
	e.failed = append(e.failed, op)
	e.mu.Unlock()

	if !later {
		e.rollback(op.images)
		e.log.record(op, op.images[0].pre, TxRolledBack, e.now())
	}
}

// RetryFailed re-applies and pushes failed operations in sequence order.
// Operations failing again stay in the failed list.
func (e *Engine) RetryFailed(ctx context.Context) (*RetryResult, error) {
	e.mu.Lock()
	if !e.online {
		e.mu.Unlock()
		return nil, ErrOffline
	}
	ops := e.failed
	e.failed = nil
	e.mu.Unlock()

	sort.Slice(ops, func(i, j int) bool { return ops[i].Seq < ops[j].Seq })

	res := &RetryResult{Succeeded: []string{}, Conflicts: []string{}, Failed: []string{}}
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			e.mu.Lock()
			e.failed = append(e.failed, op)
			e.mu.Unlock()
			res.Failed = append(res.Failed, op.ID)
			continue
		}
		if err := e.applyLocal(op); err != nil {
			return res, err
		}

		e.mu.Lock()
		e.inflight[op.key()]++
		e.mu.Unlock()

		remote, pushErr := e.push(ctx, op)

		e.mu.Lock()
		if e.inflight[op.key()]--; e.inflight[op.key()] <= 0 {
			delete(e.inflight, op.key())
		}
		e.mu.Unlock()

		_, err := e.settle(ctx, op, remote, pushErr, true)
		switch {
		case err == nil:
			res.Succeeded = append(res.Succeeded, op.ID)
		case errors.Is(err, ErrConflict):
			res.Conflicts = append(res.Conflicts, op.ID)
		default:
			res.Failed = append(res.Failed, op.ID)
		}
	}
	return res, nil
}
