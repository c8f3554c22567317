package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/game/service"
	"github.com/wricardo/blockfall/log"
)

// MockSessionManager implements service.SessionManager for testing. When
// kinds is set every engine deals that fixed sequence.
type MockSessionManager struct {
	sessions map[string]*service.Session
	kinds    []engine.Kind
	clock    clock.Clock
}

func NewMockSessionManager(c clock.Clock, kinds ...engine.Kind) *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
		kinds:    kinds,
		clock:    c,
	}
}

func (m *MockSessionManager) Create(id, configID string, config *engine.Config, seed uint64) (*service.Session, error) {
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	var src engine.KindSource = config.NewSource(seed)
	if len(m.kinds) > 0 {
		src = engine.NewSequenceSource(m.kinds...)
	}
	eng, err := engine.NewEngine(*config, src)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	session := &service.Session{
		ID:             id,
		ConfigID:       configID,
		Seed:           seed,
		Engine:         eng,
		Config:         config,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	session, exists := m.sessions[id]
	if !exists {
		return nil, errors.New("session not found")
	}
	return session, nil
}

func (m *MockSessionManager) List() []*service.Session {
	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errors.New("session not found")
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	session, exists := m.sessions[id]
	if !exists {
		return errors.New("session not found")
	}
	session.LastAccessedAt = m.clock.Now()
	return nil
}

// MockConfigManager serves classic plus a tiny 4x4 preset.
type MockConfigManager struct{}

func (MockConfigManager) LoadConfig(name string) (*engine.Config, error) {
	switch name {
	case "classic":
		cfg := engine.DefaultConfig()
		return &cfg, nil
	case "tiny":
		cfg := engine.DefaultConfig()
		cfg.Name = "Tiny"
		cfg.Width, cfg.Height = 4, 4
		return &cfg, nil
	}
	return nil, service.ErrConfigNotFound
}

func (m MockConfigManager) ListConfigs() ([]*service.ConfigInfo, error) {
	return []*service.ConfigInfo{
		{ConfigID: "classic", Name: "classic", Width: 10, Height: 22},
		{ConfigID: "tiny", Name: "Tiny", Width: 4, Height: 4},
	}, nil
}

func (m MockConfigManager) GetDefault() *engine.Config {
	cfg, _ := m.LoadConfig("classic")
	return cfg
}

func newTestService(t *testing.T, kinds ...engine.Kind) (service.GameService, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	svc := service.NewGameService(
		NewMockSessionManager(mock, kinds...),
		MockConfigManager{},
		service.WithClock(mock),
		service.WithLogger(log.NewNop()),
	)
	return svc, mock
}

func eventTypes(events []service.GameEvent) []string {
	var out []string
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestGameService_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("default config spawns the first piece", func(t *testing.T) {
		svc, mock := newTestService(t, engine.KindO)

		info, err := svc.CreateSession(ctx, "", 7)
		require.NoError(t, err)

		assert.Equal(t, "classic", info.ConfigName)
		assert.Equal(t, uint64(7), info.Seed)
		require.NotNil(t, info.Snapshot.Active)
		assert.Equal(t, engine.KindO, info.Snapshot.Active.Kind)
		assert.Equal(t, []string{service.EventSpawn}, eventTypes(info.Events))
		assert.Equal(t, mock.Now(), info.Events[0].Timestamp)
	})

	t.Run("named config", func(t *testing.T) {
		svc, _ := newTestService(t)

		info, err := svc.CreateSession(ctx, "tiny", 1)
		require.NoError(t, err)
		assert.Equal(t, "tiny", info.ConfigName)
		assert.Equal(t, 4, info.Snapshot.Width)
	})

	t.Run("zero seed is replaced", func(t *testing.T) {
		svc, _ := newTestService(t)

		info, err := svc.CreateSession(ctx, "", 0)
		require.NoError(t, err)
		assert.NotZero(t, info.Seed)
	})

	t.Run("unknown config lists alternatives", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.CreateSession(ctx, "marathon", 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, service.ErrConfigNotFound)
		assert.Contains(t, err.Error(), "Available configs")
		assert.Contains(t, err.Error(), "tiny")
	})

	t.Run("not found is matched by identity", func(t *testing.T) {
		svc := service.NewGameService(
			NewMockSessionManager(clock.NewMock()),
			wrappingConfigs{},
			service.WithLogger(log.NewNop()),
		)

		_, err := svc.CreateSession(ctx, "marathon", 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, service.ErrConfigNotFound)
		assert.Contains(t, err.Error(), "Available configs")
	})
}

func TestGameService_Command(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, engine.KindO)
	info, err := svc.CreateSession(ctx, "", 1)
	require.NoError(t, err)

	t.Run("move", func(t *testing.T) {
		res, err := svc.Command(ctx, info.ID, "left")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "left", res.Command)
		assert.Equal(t, 4, res.Snapshot.Active.Cells[0].X)
	})

	t.Run("hard drop locks and spawns", func(t *testing.T) {
		res, err := svc.Command(ctx, info.ID, "hard-drop")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, []string{service.EventLock, service.EventSpawn}, eventTypes(res.Events))
		assert.Equal(t, "O", res.Events[0].Kind)
		assert.Equal(t, 1, res.Snapshot.Pieces)
	})

	t.Run("quit keeps the session", func(t *testing.T) {
		res, err := svc.Command(ctx, info.ID, "quit")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "quit")
	})

	t.Run("unknown command", func(t *testing.T) {
		_, err := svc.Command(ctx, info.ID, "jump")
		assert.ErrorIs(t, err, engine.ErrUnknownCommand)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.Command(ctx, "nope", "left")
		assert.Error(t, err)
	})
}

func TestGameService_LineClearEvent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, engine.KindO)
	info, err := svc.CreateSession(ctx, "tiny", 1)
	require.NoError(t, err)

	res, err := svc.BulkCommand(ctx, info.ID, []string{"left", "left", "drop", "drop"})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Executed)
	assert.Equal(t, 4, res.ScoreDelta)
	assert.Equal(t, 2, res.LinesDelta)
	assert.Contains(t, eventTypes(res.Events), service.EventLineClear)
	for _, e := range res.Events {
		if e.Type == service.EventLineClear {
			assert.Equal(t, 2, e.Lines)
			assert.Equal(t, 4, e.Score)
		}
	}
}

func TestGameService_BulkCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("stops at game over", func(t *testing.T) {
		svc, _ := newTestService(t, engine.KindO)
		info, err := svc.CreateSession(ctx, "", 1)
		require.NoError(t, err)

		cmds := make([]string, 100)
		for i := range cmds {
			cmds[i] = "hard_drop"
		}
		res, err := svc.BulkCommand(ctx, info.ID, cmds)
		require.NoError(t, err)

		// Eleven O pieces fill the centre columns of a 22 row field.
		assert.Equal(t, 11, res.Executed)
		assert.True(t, res.GameOver)
		assert.Equal(t, "game_over", res.StoppedReason)
		assert.Equal(t, 12, res.StoppedOnCommand)
		assert.Equal(t, service.EventGameOver, res.Events[len(res.Events)-1].Type)
		assert.Len(t, res.Steps, 11)
	})

	t.Run("rejected moves do not stop the batch", func(t *testing.T) {
		svc, _ := newTestService(t, engine.KindO)
		info, err := svc.CreateSession(ctx, "", 1)
		require.NoError(t, err)

		cmds := []string{"left", "left", "left", "left", "left", "left", "left", "right"}
		res, err := svc.BulkCommand(ctx, info.ID, cmds)
		require.NoError(t, err)

		assert.Equal(t, 8, res.Executed)
		assert.Equal(t, 6, res.Accepted)
		assert.Equal(t, 2, res.Rejected)
		assert.Empty(t, res.StoppedReason)
	})

	t.Run("invalid command rejects the whole batch", func(t *testing.T) {
		svc, _ := newTestService(t, engine.KindO)
		info, err := svc.CreateSession(ctx, "", 1)
		require.NoError(t, err)

		_, err = svc.BulkCommand(ctx, info.ID, []string{"left", "fly"})
		require.ErrorIs(t, err, engine.ErrUnknownCommand)

		snap, err := svc.GetSnapshot(ctx, info.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, snap.Active.Cells[0].X, "nothing applied")
	})

	t.Run("limit", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.BulkCommand(ctx, "any", make([]string, service.MaxBulkCommands+1))
		assert.ErrorIs(t, err, service.ErrTooManyCommands)
	})
}

func TestGameService_Advance(t *testing.T) {
	ctx := context.Background()

	t.Run("gravity after one interval", func(t *testing.T) {
		svc, _ := newTestService(t, engine.KindO)
		info, err := svc.CreateSession(ctx, "", 1)
		require.NoError(t, err)
		top := info.Snapshot.Active.Cells[0].Y

		res, err := svc.Advance(ctx, info.ID, time.Second)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Falls, "exactly one interval is not enough")
		assert.Equal(t, 100, res.Ticks)

		res, err = svc.Advance(ctx, info.ID, 10*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Falls)
		assert.Equal(t, top-1, res.Snapshot.Active.Cells[0].Y)

		got, err := svc.GetSession(ctx, info.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1010), got.GameTimeMs)
	})

	t.Run("runs until game over", func(t *testing.T) {
		svc, _ := newTestService(t, engine.KindO)
		info, err := svc.CreateSession(ctx, "tiny", 1)
		require.NoError(t, err)

		res, err := svc.Advance(ctx, info.ID, service.MaxAdvance)
		require.NoError(t, err)

		assert.True(t, res.Snapshot.Terminal)
		assert.Less(t, res.ElapsedMs, res.RequestedMs)
		types := eventTypes(res.Events)
		assert.Contains(t, types, service.EventLock)
		assert.Equal(t, service.EventGameOver, types[len(types)-1])
	})

	t.Run("invalid durations", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Advance(ctx, "any", 0)
		assert.ErrorIs(t, err, service.ErrInvalidDuration)
		_, err = svc.Advance(ctx, "any", service.MaxAdvance+time.Millisecond)
		assert.ErrorIs(t, err, service.ErrInvalidDuration)
	})
}

func TestGameService_DeferredSpawn(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()
	configs := deferConfigs{}
	svc := service.NewGameService(NewMockSessionManager(mock, engine.KindO), configs, service.WithClock(mock), service.WithLogger(log.NewNop()))

	info, err := svc.CreateSession(ctx, "", 1)
	require.NoError(t, err)

	res, err := svc.Command(ctx, info.ID, "drop")
	require.NoError(t, err)
	assert.Nil(t, res.Snapshot.Active)
	assert.Equal(t, []string{service.EventLock}, eventTypes(res.Events))

	// The next command takes the pending spawn first.
	res, err = svc.Command(ctx, info.ID, "left")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{service.EventSpawn}, eventTypes(res.Events))
}

// wrappingConfigs reports missing presets with its own wording around the
// sentinel.
type wrappingConfigs struct{ MockConfigManager }

func (wrappingConfigs) LoadConfig(name string) (*engine.Config, error) {
	return nil, fmt.Errorf("preset %q is not on disk: %w", name, service.ErrConfigNotFound)
}

type deferConfigs struct{ MockConfigManager }

func (deferConfigs) GetDefault() *engine.Config {
	cfg := engine.DefaultConfig()
	cfg.DeferSpawn = true
	return &cfg
}

func TestGameService_Reset(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, engine.KindO)
	info, err := svc.CreateSession(ctx, "", 1)
	require.NoError(t, err)

	_, err = svc.BulkCommand(ctx, info.ID, []string{"drop", "drop", "drop"})
	require.NoError(t, err)

	reset, err := svc.Reset(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reset.Snapshot.Pieces)
	assert.Equal(t, 0, reset.Snapshot.Score)
	assert.NotNil(t, reset.Snapshot.Active)
	assert.Equal(t, []string{service.EventReset, service.EventSpawn}, eventTypes(reset.Events))
}

func TestGameService_ResetKeepsSeed(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	info, err := svc.CreateSession(ctx, "", 42)
	require.NoError(t, err)

	dealt := func(first *engine.Snapshot) []engine.Kind {
		require.NotNil(t, first.Active)
		kinds := []engine.Kind{first.Active.Kind}
		for i := 0; i < 6; i++ {
			res, err := svc.Command(ctx, info.ID, "hard_drop")
			require.NoError(t, err)
			require.True(t, res.Success)
			require.NotNil(t, res.Snapshot.Active)
			kinds = append(kinds, res.Snapshot.Active.Kind)
		}
		return kinds
	}

	before := dealt(info.Snapshot)
	reset, err := svc.Reset(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), reset.Seed)
	assert.Equal(t, before, dealt(reset.Snapshot))
}

func TestGameService_History(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, engine.KindO)
	info, err := svc.CreateSession(ctx, "", 1)
	require.NoError(t, err)

	_, err = svc.BulkCommand(ctx, info.ID, []string{"left", "right", "drop"})
	require.NoError(t, err)
	_, err = svc.Advance(ctx, info.ID, 500*time.Millisecond)
	require.NoError(t, err)

	t.Run("newest first by default", func(t *testing.T) {
		h, err := svc.GetHistory(ctx, info.ID, service.HistoryOptions{})
		require.NoError(t, err)

		assert.Equal(t, 4, h.TotalEntries)
		require.Len(t, h.Entries, 4)
		assert.Equal(t, service.ActionAdvance, h.Entries[0].Action)
		assert.Equal(t, int64(500), h.Entries[0].AdvanceMs)
		assert.Equal(t, "left", h.Entries[3].Command)
		assert.Equal(t, 1, h.Entries[3].Seq)
	})

	t.Run("pages", func(t *testing.T) {
		h, err := svc.GetHistory(ctx, info.ID, service.HistoryOptions{Page: 2, Limit: 2, Order: "asc"})
		require.NoError(t, err)

		require.Len(t, h.Entries, 2)
		assert.Equal(t, "hard_drop", h.Entries[0].Command)
		assert.Equal(t, 1, h.Entries[0].Pieces)
		assert.Equal(t, 2, h.TotalPages)
		assert.False(t, h.HasNext)
		assert.True(t, h.HasPrevious)
	})

	t.Run("past the end", func(t *testing.T) {
		h, err := svc.GetHistory(ctx, info.ID, service.HistoryOptions{Page: 9, Limit: 2, Order: "asc"})
		require.NoError(t, err)
		assert.Empty(t, h.Entries)
	})
}

func TestGameService_Sessions(t *testing.T) {
	ctx := context.Background()
	svc, mock := newTestService(t)

	a, err := svc.CreateSession(ctx, "", 1)
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "tiny", 2)
	require.NoError(t, err)

	list, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	mock.Add(time.Minute)
	got, err := svc.GetSession(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.CreatedAt.Add(time.Minute), got.LastAccessedAt)

	require.NoError(t, svc.DeleteSession(ctx, a.ID))
	_, err = svc.GetSession(ctx, a.ID)
	assert.Error(t, err)
	assert.Error(t, svc.DeleteSession(ctx, a.ID))

	configs, err := svc.ListConfigs(ctx)
	require.NoError(t, err)
	assert.Len(t, configs, 2)

	cfg, err := svc.LoadConfig(ctx, "tiny")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Width)
}
