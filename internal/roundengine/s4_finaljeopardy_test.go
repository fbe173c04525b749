package roundengine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/briarpatch/jeopardy-coordinator/internal/model"
)

// TestFinalJeopardyAutoCompletesOnLastJudgment covers spec scenario
// S4: once every seat's Final Jeopardy answer has been judged, the
// coordinator persists scores, transitions to completed, and
// broadcasts game_completed.
func TestFinalJeopardyAutoCompletesOnLastJudgment(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "game-s4", []int{1, 2, 3})

	// A Final Jeopardy wager may not exceed the seat's score, so every
	// seat starts at 100 to make the 100 wagers below valid.
	for _, seat := range []int{1, 2, 3} {
		_, err := h.engine.AdjustScore(ctx, h.gameID, seat, 100)
		require.NoError(t, err)
	}

	_, err := h.engine.StartFinalJeopardy(ctx, h.gameID, testEpisodeID)
	require.NoError(t, err)

	for _, seat := range []int{1, 2, 3} {
		_, err := h.engine.SubmitFJWager(ctx, h.gameID, seat, 100)
		require.NoError(t, err)
	}

	_, err = h.engine.RevealFJClue(ctx, h.gameID, testEpisodeID)
	require.NoError(t, err)

	r1, err := h.engine.JudgeFJAnswer(ctx, h.gameID, 1, true)
	require.NoError(t, err)
	assert.Equal(t, "fj_answer_judged", r1.Type)

	r2, err := h.engine.JudgeFJAnswer(ctx, h.gameID, 2, false)
	require.NoError(t, err)
	assert.Equal(t, "fj_answer_judged", r2.Type)

	r3, err := h.engine.JudgeFJAnswer(ctx, h.gameID, 3, true)
	require.NoError(t, err)
	assert.Equal(t, "game_completed", r3.Type)

	game, err := h.durable.GetGame(ctx, h.gameID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, game.Status)

	participants, err := h.durable.Participants(ctx, h.gameID)
	require.NoError(t, err)
	for _, p := range participants {
		switch p.Seat {
		case 1, 3:
			assert.Equal(t, 200, p.Score)
		case 2:
			assert.Equal(t, 0, p.Score)
		}
	}
}
