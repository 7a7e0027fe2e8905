package sync

import (
	gosync "sync"
	"time"

	"entity-sync/core/entity"

	"github.com/google/uuid"
)

// TxState is the outcome recorded for a transaction.
type TxState string

const (
	TxApplied    TxState = "applied"
	TxQueued     TxState = "queued"
	TxCommitted  TxState = "committed"
	TxRolledBack TxState = "rolled-back"
	TxConflict   TxState = "conflict"
)

// Transaction records one local mutation with its images.
type Transaction struct {
	ID          string        `json:"id"`
	OperationID string        `json:"operation_id"`
	Kind        OpKind        `json:"kind"`
	EntityType  string        `json:"entity_type"`
	EntityID    string        `json:"entity_id"`
	Pre         entity.Entity `json:"pre,omitempty"`
	Post        entity.Entity `json:"post,omitempty"`
	State       TxState       `json:"state"`
	At          time.Time     `json:"at"`
}

// txLog is a bounded ring of recent transactions.
type txLog struct {
	mu      gosync.Mutex
	entries []Transaction
	limit   int
}

func newTxLog(limit int) *txLog {
	return &txLog{limit: limit}
}

func (l *txLog) record(op *Operation, pre entity.Entity, state TxState, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, Transaction{
		ID:          uuid.NewString(),
		OperationID: op.ID,
		Kind:        op.Kind,
		EntityType:  op.EntityType,
		EntityID:    op.EntityID,
		Pre:         pre.Clone(),
		Post:        op.Post.Clone(),
		State:       state,
		At:          at,
	})
	if over := len(l.entries) - l.limit; over > 0 {
		l.entries = append([]Transaction(nil), l.entries[over:]...)
	}
}

func (l *txLog) list() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Transaction, len(l.entries))
	copy(out, l.entries)
	return out
}
