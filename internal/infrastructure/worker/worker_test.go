package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
)

type mockRecomputer struct {
	mu    sync.Mutex
	calls map[string]int

	recomputeFunc func(ctx context.Context, programID string) ([]entity.RankedEntry, error)
}

func (m *mockRecomputer) RecomputeRanking(ctx context.Context, programID string) ([]entity.RankedEntry, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[programID]++
	m.mu.Unlock()

	if m.recomputeFunc != nil {
		return m.recomputeFunc(ctx, programID)
	}
	return []entity.RankedEntry{{ProgramID: programID, Rank: 1}}, nil
}

func (m *mockRecomputer) count(programID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[programID]
}

func TestRankingRefresher_RefreshAll(t *testing.T) {
	svc := &mockRecomputer{
		recomputeFunc: func(ctx context.Context, programID string) ([]entity.RankedEntry, error) {
			if programID == "broken" {
				return nil, errors.New("no policy")
			}
			return nil, nil
		},
	}
	r := NewRankingRefresher(svc, []string{"a", "broken", "b"}, time.Minute, zap.NewNop())

	assert.Equal(t, 2, r.RefreshAll(context.Background()))
	assert.Equal(t, 1, svc.count("a"))
	assert.Equal(t, 1, svc.count("broken"))
	assert.Equal(t, 1, svc.count("b"))
}

func TestRankingRefresher_StartStop(t *testing.T) {
	svc := &mockRecomputer{}
	r := NewRankingRefresher(svc, []string{"prog-1"}, 10*time.Millisecond, zap.NewNop())

	require.NoError(t, r.Start(context.Background()))
	assert.Error(t, r.Start(context.Background()), "second start is rejected")

	assert.Eventually(t, func() bool { return svc.count("prog-1") >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, r.Stop())
	stopped := svc.count("prog-1")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, svc.count("prog-1"), "no refresh after stop")

	require.NoError(t, r.Stop())
}

func TestRankingRefresher_RequiresInterval(t *testing.T) {
	r := NewRankingRefresher(&mockRecomputer{}, nil, 0, zap.NewNop())
	assert.Error(t, r.Start(context.Background()))
}

func TestManager(t *testing.T) {
	svc := &mockRecomputer{}
	m := NewManager(zap.NewNop())
	m.Register(NewRankingRefresher(svc, []string{"prog-1"}, time.Hour, zap.NewNop()))
	assert.Equal(t, 1, m.Count())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.Error(t, m.StartAll(context.Background()))

	assert.Eventually(t, func() bool { return svc.count("prog-1") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	require.NoError(t, m.StopAll())
}
