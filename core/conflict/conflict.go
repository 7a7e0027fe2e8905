package conflict

import (
	"time"

	"entity-sync/core/entity"

	"github.com/google/uuid"
)

// Strategy names a resolution policy.
type Strategy string

const (
	LocalWins  Strategy = "local-wins"
	RemoteWins Strategy = "remote-wins"
	LatestWins Strategy = "latest-wins"
	Custom     Strategy = "custom"
	// Manual defers resolution to an explicit caller decision.
	Manual Strategy = "manual"
)

// ParseStrategy validates a strategy name. An empty name means Manual.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(name); s {
	case "":
		return Manual, nil
	case LocalWins, RemoteWins, LatestWins, Custom, Manual:
		return s, nil
	default:
		return "", &UnknownStrategyError{Strategy: name}
	}
}

// SyncConflict records a divergence detected by the sync engine.
type SyncConflict struct {
	ID            string        `json:"id"`
	EntityType    string        `json:"entity_type"`
	EntityID      string        `json:"entity_id"`
	LocalData     entity.Entity `json:"local_data"`
	RemoteData    entity.Entity `json:"remote_data"`
	LocalVersion  int64         `json:"local_version"`
	RemoteVersion int64         `json:"remote_version"`
	DetectedAt    time.Time     `json:"detected_at"`
}

// New creates a conflict with a fresh id. Data is copied.
func New(entityType, entityID string, local, remote entity.Entity, localVersion, remoteVersion int64, at time.Time) *SyncConflict {
	return &SyncConflict{
		ID:            uuid.NewString(),
		EntityType:    entityType,
		EntityID:      entityID,
		LocalData:     local.Clone(),
		RemoteData:    remote.Clone(),
		LocalVersion:  localVersion,
		RemoteVersion: remoteVersion,
		DetectedAt:    at,
	}
}

// Result is the outcome of a resolution.
type Result struct {
	Data         entity.Entity `json:"data"`
	StrategyUsed Strategy      `json:"strategy_used"`
}
