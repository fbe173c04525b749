package roundengine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briarpatch/jeopardy-coordinator/internal/model"
)

// TestResetGameWipesBoard covers spec scenario S5: after reveals and
// judgments, reset_game zeroes every seat's score in both stores,
// clears revealed_clues, returns to the single round, and clears the
// current clue.
func TestResetGameWipesBoard(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "game-s5", []int{1, 2})

	_, err := h.engine.RevealClue(ctx, h.gameID, testEpisodeID, 42)
	require.NoError(t, err)
	token := mustToken(t, h)
	_, err = h.engine.HandleBuzz(ctx, h.gameID, 1, 1000, token)
	require.NoError(t, err)
	_, err = h.engine.JudgeAnswer(ctx, h.gameID, testEpisodeID, 1, true, 200)
	require.NoError(t, err)

	_, err = h.engine.StartRound(ctx, h.gameID, model.RoundDouble)
	require.NoError(t, err)

	reset, err := h.engine.ResetGame(ctx, h.gameID)
	require.NoError(t, err)
	assert.Equal(t, "game_reset", reset.Type)

	scores := reset.Payload["scores"].(map[int]int)
	assert.Equal(t, 0, scores[1])
	assert.Equal(t, 0, scores[2])

	participants, err := h.durable.Participants(ctx, h.gameID)
	require.NoError(t, err)
	for _, p := range participants {
		assert.Equal(t, 0, p.Score)
	}

	snap, err := h.engine.Snapshot(ctx, h.gameID)
	require.NoError(t, err)
	assert.Empty(t, snap.RevealedClues)
	assert.Equal(t, model.RoundSingle, snap.CurrentRound)
	assert.Equal(t, int64(0), snap.CurrentClue)
}

// TestResetGameIsIdempotent covers the round-trip law: reset_game
// twice in a row is equivalent to one reset_game.
func TestResetGameIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "game-s5-idem", []int{1})

	first, err := h.engine.ResetGame(ctx, h.gameID)
	require.NoError(t, err)
	second, err := h.engine.ResetGame(ctx, h.gameID)
	require.NoError(t, err)

	assert.Equal(t, first.Payload, second.Payload)
}
