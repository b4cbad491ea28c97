package gate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appgate "github.com/tonpass-inc/tonpass/internal/application/access/gate"
)

type scriptedGate struct {
	mu      sync.Mutex
	batches [][]appgate.Update
}

func (g *scriptedGate) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]appgate.Update, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.batches) == 0 {
		time.Sleep(5 * time.Millisecond)
		return nil, nil
	}
	batch := g.batches[0]
	g.batches = g.batches[1:]
	return batch, nil
}

func (g *scriptedGate) ApproveJoinRequest(ctx context.Context, subjectID, resourceID int64) error {
	return nil
}
func (g *scriptedGate) DeclineJoinRequest(ctx context.Context, subjectID, resourceID int64) error {
	return nil
}
func (g *scriptedGate) RemoveSubject(ctx context.Context, subjectID, resourceID int64) error {
	return nil
}
func (g *scriptedGate) SendMessage(ctx context.Context, subjectID int64, text string) error {
	return nil
}
func (g *scriptedGate) Ping(ctx context.Context) error { return nil }

type recordingHandler struct {
	mu  sync.Mutex
	ids []int64
}

func (h *recordingHandler) HandleUpdate(ctx context.Context, update appgate.Update) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ids = append(h.ids, update.ID)
	return nil
}

func (h *recordingHandler) seen() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]int64, len(h.ids))
	copy(out, h.ids)
	return out
}

type memoryOffsetStore struct {
	mu     sync.Mutex
	offset int64
}

func (s *memoryOffsetStore) GetOffset(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset, nil
}

func (s *memoryOffsetStore) SaveOffset(ctx context.Context, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = offset
	return nil
}

func joinUpdate(id, subjectID int64) appgate.Update {
	return appgate.Update{
		ID: id,
		JoinRequest: &appgate.JoinRequest{
			SubjectID:   subjectID,
			ResourceID:  -100123,
			RequestedAt: time.Now(),
		},
	}
}

func TestPollingService_DeduplicatesOverlappingBatches(t *testing.T) {
	gateSvc := &scriptedGate{batches: [][]appgate.Update{
		{joinUpdate(1001, 7), joinUpdate(1002, 8)},
		{joinUpdate(1002, 8), joinUpdate(1003, 9)},
	}}
	handler := &recordingHandler{}
	store := &memoryOffsetStore{}

	svc := NewPollingService(gateSvc, handler, time.Second, store, testLogger())
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	require.Eventually(t, func() bool {
		return len(handler.seen()) >= 3
	}, 2*time.Second, 10*time.Millisecond)

	// 1002 appears in both batches but is handled once
	counts := map[int64]int{}
	for _, id := range handler.seen() {
		counts[id]++
	}
	assert.Equal(t, 1, counts[1001])
	assert.Equal(t, 1, counts[1002])
	assert.Equal(t, 1, counts[1003])
}

func TestPollingService_PersistsOffset(t *testing.T) {
	gateSvc := &scriptedGate{batches: [][]appgate.Update{
		{joinUpdate(2001, 7)},
	}}
	handler := &recordingHandler{}
	store := &memoryOffsetStore{}

	svc := NewPollingService(gateSvc, handler, time.Second, store, testLogger())
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	require.Eventually(t, func() bool {
		off, _ := store.GetOffset(context.Background())
		return off == 2001
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPollingService_ResumesFromStoredOffset(t *testing.T) {
	gateSvc := &scriptedGate{}
	handler := &recordingHandler{}
	store := &memoryOffsetStore{offset: 3000}

	svc := NewPollingService(gateSvc, handler, time.Second, store, testLogger())
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	// Updates at or below the stored offset are never replayed
	gateSvc.mu.Lock()
	gateSvc.batches = [][]appgate.Update{
		{joinUpdate(2999, 7), joinUpdate(3000, 8), joinUpdate(3001, 9)},
	}
	gateSvc.mu.Unlock()

	require.Eventually(t, func() bool {
		return len(handler.seen()) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []int64{3001}, handler.seen())
}
