package roundengine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClueNotInEpisodeRejected covers the boundary behavior: a clue
// reveal naming a clue id not in the episode is rejected with an
// error, not coerced.
func TestClueNotInEpisodeRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "game-boundary-clue", []int{1})

	_, err := h.engine.RevealClue(ctx, h.gameID, testEpisodeID, 999999)
	assert.Error(t, err)
}

// TestDDWagerExactlyAtMinimumAccepted and the max boundary both land
// at the documented edges: 5 and max(round_cap, score).
func TestDDWagerExactlyAtMinimumAccepted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "game-boundary-wager-min", []int{1, 2})
	h.forceDailyDouble(99)

	_, err := h.engine.RevealClue(ctx, h.gameID, testEpisodeID, 99)
	require.NoError(t, err)
	_, err = h.engine.RevealDailyDouble(ctx, h.gameID)
	require.NoError(t, err)

	_, err = h.engine.SubmitWager(ctx, h.gameID, 1, 5)
	assert.NoError(t, err)
}

func TestDDWagerExactlyAtRoundCapAccepted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "game-boundary-wager-max", []int{1, 2})
	h.forceDailyDouble(99)

	_, err := h.engine.RevealClue(ctx, h.gameID, testEpisodeID, 99)
	require.NoError(t, err)
	_, err = h.engine.RevealDailyDouble(ctx, h.gameID)
	require.NoError(t, err)

	_, err = h.engine.SubmitWager(ctx, h.gameID, 1, 1000)
	assert.NoError(t, err)
}

func TestDDWagerAboveRoundCapRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "game-boundary-wager-over", []int{1, 2})
	h.forceDailyDouble(99)

	_, err := h.engine.RevealClue(ctx, h.gameID, testEpisodeID, 99)
	require.NoError(t, err)
	_, err = h.engine.RevealDailyDouble(ctx, h.gameID)
	require.NoError(t, err)

	_, err = h.engine.SubmitWager(ctx, h.gameID, 1, 1001)
	assert.Error(t, err)
}

// TestFJWagerZeroAcceptedAtNonPositiveScore covers 0 <= w <= max(0, score)
// at a score of 0: a wager of 0 is accepted and a wager of 1 is rejected.
func TestFJWagerZeroAcceptedAtNonPositiveScore(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "game-boundary-fj", []int{1})

	_, err := h.engine.StartFinalJeopardy(ctx, h.gameID, testEpisodeID)
	require.NoError(t, err)

	_, err = h.engine.SubmitFJWager(ctx, h.gameID, 1, 0)
	assert.NoError(t, err)

	_, err = h.engine.SubmitFJWager(ctx, h.gameID, 1, 1)
	assert.Error(t, err)
}
