package roundengine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briarpatch/jeopardy-coordinator/internal/model"
)

// TestRoundTransitionGivesControlToLowestScore covers spec scenario
// S6: starting the double round hands board control to the seat with
// the lowest current score.
func TestRoundTransitionGivesControlToLowestScore(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "game-s6", []int{1, 2, 3})

	_, err := h.engine.AdjustScore(ctx, h.gameID, 1, 1000)
	require.NoError(t, err)
	_, err = h.engine.AdjustScore(ctx, h.gameID, 2, 300)
	require.NoError(t, err)
	_, err = h.engine.AdjustScore(ctx, h.gameID, 3, 600)
	require.NoError(t, err)

	result, err := h.engine.StartRound(ctx, h.gameID, model.RoundDouble)
	require.NoError(t, err)

	assert.Equal(t, "round_changed", result.Type)
	assert.Equal(t, "double", result.Payload["round"])
	assert.Equal(t, 2, result.Payload["current_player"])
}
