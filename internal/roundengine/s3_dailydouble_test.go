package roundengine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDailyDoubleRevealGating covers spec scenario S3: with
// current_player = 2 and a Daily Double clue pending, revealing it
// withholds content and names only the wagering seat; a non-wagering
// seat's wager is rejected; an under-minimum wager is rejected with
// the documented message; a valid wager bounded by
// max(round_cap, score) is accepted.
func TestDailyDoubleRevealGating(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "game-s3", []int{1, 2, 3})

	// Give seat 2 board control and a score of 300, the scenario's
	// starting condition, by routing a normal correct answer through
	// the engine rather than reaching into its private state.
	_, err := h.engine.RevealClue(ctx, h.gameID, testEpisodeID, 42)
	require.NoError(t, err)
	token := mustToken(t, h)
	_, err = h.engine.HandleBuzz(ctx, h.gameID, 2, 1000, token)
	require.NoError(t, err)
	_, err = h.engine.JudgeAnswer(ctx, h.gameID, testEpisodeID, 2, true, 300)
	require.NoError(t, err)

	h.forceDailyDouble(99)

	reveal, err := h.engine.RevealClue(ctx, h.gameID, testEpisodeID, 99)
	require.NoError(t, err)
	assert.Equal(t, "daily_double_detected", reveal.Type)
	assert.Equal(t, 2, reveal.Payload["player_number"])
	assert.NotContains(t, reveal.Payload, "question")

	_, err = h.engine.RevealDailyDouble(ctx, h.gameID)
	require.NoError(t, err)

	_, err = h.engine.SubmitWager(ctx, h.gameID, 3, 500)
	assert.Error(t, err, "seat 3 is not the wagering player")

	_, err = h.engine.SubmitWager(ctx, h.gameID, 2, 4)
	assert.ErrorContains(t, err, "at least $5")

	wagerResult, err := h.engine.SubmitWager(ctx, h.gameID, 2, 800)
	require.NoError(t, err)
	assert.Equal(t, "wager_submitted", wagerResult.Type)
}

// mustToken re-enables the buzzer to fetch a fresh unlock token for
// tests that need one without threading it through every call site.
func mustToken(t *testing.T, h *harness) string {
	t.Helper()
	b, err := h.engine.EnableBuzzer(context.Background(), h.gameID)
	require.NoError(t, err)
	return b.Payload["unlock_token"].(string)
}
