package durable_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/briarpatch/jeopardy-coordinator/internal/durable"
	"github.com/briarpatch/jeopardy-coordinator/internal/model"
)

func newTestStore(t *testing.T) *durable.GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	store := durable.NewGormStore(db)
	require.NoError(t, store.AutoMigrate(context.Background()))
	return store
}

func seedGame(t *testing.T, store *durable.GormStore, gameID string, scores map[int]int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateGame(ctx, model.Game{
		ID:           gameID,
		EpisodeID:    1,
		HostID:       "host-1",
		Status:       model.StatusActive,
		CurrentRound: model.RoundSingle,
		CreatedAt:    time.Now(),
	}))
	for seat, score := range scores {
		require.NoError(t, store.AddParticipant(ctx, model.Participant{
			GameID:     gameID,
			PlayerID:   "player",
			PlayerName: "Player",
			Seat:       seat,
			Score:      score,
			JoinedAt:   time.Now(),
		}))
	}
}

func TestSetParticipantScoreAndRetrieve(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedGame(t, store, "game-1", map[int]int{1: 0, 2: 0})

	require.NoError(t, store.SetParticipantScore(ctx, "game-1", 1, 400))

	participants, err := store.Participants(ctx, "game-1")
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.Equal(t, 400, participants[0].Score)
}

func TestSetParticipantScoreUnknownSeatErrors(t *testing.T) {
	store := newTestStore(t)
	seedGame(t, store, "game-2", map[int]int{1: 0})

	err := store.SetParticipantScore(context.Background(), "game-2", 9, 100)
	assert.Error(t, err)
}

func TestRankedScoresShareTies(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedGame(t, store, "game-3", map[int]int{1: 1000, 2: 600, 3: 600})

	ranked, err := store.RankedScores(ctx, "game-3")
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.Equal(t, 2, ranked[2].Rank, "tied scores must share a rank")
}

func TestGetGameNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetGame(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, durable.ErrGameNotFound)
}

func TestSetGameStatusWithEndedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedGame(t, store, "game-4", map[int]int{1: 0})

	now := time.Now()
	require.NoError(t, store.SetGameStatus(ctx, "game-4", model.StatusCompleted, &now))

	game, err := store.GetGame(ctx, "game-4")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, game.Status)
	require.NotNil(t, game.EndedAt)
}

func TestRecordClueRevealAndAuditAppend(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedGame(t, store, "game-5", map[int]int{1: 0})

	winner := 1
	require.NoError(t, store.RecordClueReveal(ctx, model.ClueRevealRecord{
		GameID:     "game-5",
		ClueID:     42,
		BuzzWinner: &winner,
		Correct:    model.CorrectnessCorrect,
		RevealedAt: time.Now(),
	}))

	require.NoError(t, store.AppendAudit(ctx, model.AuditEvent{
		ID:                "evt-1",
		GameID:            "game-5",
		Action:            "judge_answer",
		CreatedAt:         time.Now(),
		ServerTimestampUS: time.Now().UnixMicro(),
	}))
}
