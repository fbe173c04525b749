package audit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briarpatch/jeopardy-coordinator/internal/audit"
	"github.com/briarpatch/jeopardy-coordinator/internal/coordlog"
	"github.com/briarpatch/jeopardy-coordinator/internal/model"
)

type fakeStore struct {
	mu     sync.Mutex
	scores map[string]int
	events []model.AuditEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{scores: make(map[string]int)}
}

func (f *fakeStore) GetGame(context.Context, string) (*model.Game, error) { return nil, nil }
func (f *fakeStore) CreateGame(context.Context, model.Game) error         { return nil }
func (f *fakeStore) Participants(context.Context, string) ([]model.Participant, error) {
	return nil, nil
}
func (f *fakeStore) AddParticipant(context.Context, model.Participant) error { return nil }

func (f *fakeStore) SetParticipantScore(_ context.Context, gameID string, seat int, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[gameID+"/"+string(rune('0'+seat))] = score
	return nil
}

func (f *fakeStore) RecordClueReveal(context.Context, model.ClueRevealRecord) error { return nil }

func (f *fakeStore) AppendAudit(_ context.Context, ev model.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeStore) SetGameStatus(context.Context, string, model.GameStatus, *time.Time) error {
	return nil
}

func (f *fakeStore) RankedScores(context.Context, string) ([]model.RankedParticipant, error) {
	return nil, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func TestRecordScoreChangeMirrorsSynchronously(t *testing.T) {
	store := newFakeStore()
	w := audit.New(store, coordlog.New(false), 10)
	defer w.Close()

	require.NoError(t, w.RecordScoreChange(context.Background(), "game-1", 1, 400))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 400, store.scores["game-1/1"])
}

func TestAppendEventuallyPersists(t *testing.T) {
	store := newFakeStore()
	w := audit.New(store, coordlog.New(false), 10)
	defer w.Close()

	w.Append("game-1", "judge_answer", nil, map[string]any{"seat": 1})

	require.Eventually(t, func() bool {
		return store.count() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestAppendNeverBlocksOnFullBuffer(t *testing.T) {
	store := newFakeStore()
	w := audit.New(store, coordlog.New(false), 1)
	defer w.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			w.Append("game-1", "judge_answer", nil, map[string]any{"i": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Append blocked under a full buffer")
	}
}
