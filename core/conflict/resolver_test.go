package conflict

import (
	"errors"
	"testing"
	"time"

	"entity-sync/core/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleConflict(localTS, remoteTS any) *SyncConflict {
	return New("posts", "1",
		entity.Entity{"id": "1", "title": "local", "updatedAt": localTS},
		entity.Entity{"id": "1", "title": "remote", "updatedAt": remoteTS, "views": 3},
		1, 2, time.Unix(0, 0),
	)
}

func TestResolve_LocalWinsIsDeterministic(t *testing.T) {
	r := NewResolver()
	c := sampleConflict("2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z")

	first, err := r.Resolve(c, LocalWins)
	require.NoError(t, err)
	second, err := r.Resolve(c, LocalWins)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "local", first.Data["title"])
	assert.Equal(t, LocalWins, first.StrategyUsed)

	first.Data["title"] = "mutated"
	assert.Equal(t, "local", c.LocalData["title"], "result must not alias the conflict")
}

func TestResolve_RemoteWins(t *testing.T) {
	res, err := NewResolver().Resolve(sampleConflict(nil, nil), RemoteWins)
	require.NoError(t, err)
	assert.Equal(t, "remote", res.Data["title"])
}

func TestResolve_LatestWins(t *testing.T) {
	tests := []struct {
		name      string
		local     any
		remote    any
		wantTitle string
	}{
		{"local newer", "2024-01-03T00:00:00Z", "2024-01-02T00:00:00Z", "local"},
		{"remote newer", "2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z", "remote"},
		{"tie favors remote", "2024-01-02T00:00:00Z", "2024-01-02T00:00:00Z", "remote"},
		{"epoch millis", int64(1_700_000_000_001), int64(1_700_000_000_000), "local"},
		{"unparsable local", "yesterday", "2024-01-02T00:00:00Z", "remote"},
		{"missing timestamps", nil, nil, "remote"},
	}

	r := NewResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(sampleConflict(tt.local, tt.remote), LatestWins)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, res.Data["title"])
			assert.Equal(t, LatestWins, res.StrategyUsed)
		})
	}
}

func TestResolve_LatestWinsCustomField(t *testing.T) {
	r := NewResolver(WithTimestampField("modified"))
	c := New("posts", "1",
		entity.Entity{"title": "local", "modified": 20},
		entity.Entity{"title": "remote", "modified": 10},
		0, 0, time.Now(),
	)
	res, err := r.Resolve(c, LatestWins)
	require.NoError(t, err)
	assert.Equal(t, "local", res.Data["title"])
}

func TestResolve_Custom(t *testing.T) {
	r := NewResolver()

	_, err := r.Resolve(sampleConflict(nil, nil), Custom)
	assert.ErrorIs(t, err, ErrNoCustomResolver)

	r.Register(AnyType, MergeRemoteIntoLocal)
	res, err := r.Resolve(sampleConflict(nil, nil), Custom)
	require.NoError(t, err)
	assert.Equal(t, "local", res.Data["title"])
	assert.Equal(t, 3, res.Data["views"])

	r.Register("posts", func(*SyncConflict) (entity.Entity, error) {
		return nil, errors.New("refused")
	})
	_, err = r.Resolve(sampleConflict(nil, nil), Custom)
	assert.ErrorContains(t, err, "refused")
}

func TestResolve_ManualAndUnknown(t *testing.T) {
	r := NewResolver()

	_, err := r.Resolve(sampleConflict(nil, nil), Manual)
	assert.ErrorIs(t, err, ErrManual)

	_, err = r.Resolve(sampleConflict(nil, nil), Strategy("coin-flip"))
	var unknown *UnknownStrategyError
	assert.ErrorAs(t, err, &unknown)

	_, err = ParseStrategy("coin-flip")
	assert.Error(t, err)
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, Manual, s)
}
