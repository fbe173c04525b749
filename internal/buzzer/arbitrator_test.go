package buzzer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briarpatch/jeopardy-coordinator/internal/buzzer"
	"github.com/briarpatch/jeopardy-coordinator/internal/ephemeral/memstore"
)

func newArbitrator() *buzzer.Arbitrator {
	return buzzer.New(memstore.New(), 2*time.Second, 24*time.Hour)
}

// TestBuzzerRaceFirstWins covers spec scenario S1: two seats buzz in
// quick succession against the same unlock token; the earlier one
// must be the winner for every subsequent position.
func TestBuzzerRaceFirstWins(t *testing.T) {
	ctx := context.Background()
	a := newArbitrator()
	gameID := "game-s1"

	token, err := a.Unlock(ctx, gameID)
	require.NoError(t, err)

	r1, err := a.HandleBuzz(ctx, gameID, 1, 1_000_000, token)
	require.NoError(t, err)
	assert.True(t, r1.Accepted)
	assert.Equal(t, 1, r1.Position)
	assert.Equal(t, 1, r1.Winner)

	r2, err := a.HandleBuzz(ctx, gameID, 2, 1_000_050, token)
	require.NoError(t, err)
	assert.True(t, r2.Accepted)
	assert.Equal(t, 2, r2.Position)
	assert.Equal(t, 1, r2.Winner)

	order, err := a.Order(ctx, gameID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, order)
}

// TestStaleTokenRejectedWithCooldown covers spec scenario S2: after a
// judged answer the round engine mints a fresh token, and a seat still
// holding the old one is rejected with position -1 and a cooldown.
func TestStaleTokenRejectedWithCooldown(t *testing.T) {
	ctx := context.Background()
	a := newArbitrator()
	gameID := "game-s2"

	staleToken, err := a.Unlock(ctx, gameID)
	require.NoError(t, err)

	_, err = a.HandleBuzz(ctx, gameID, 1, 1_000_000, staleToken)
	require.NoError(t, err)

	require.NoError(t, a.ClearForRetry(ctx, gameID))
	require.NoError(t, a.MarkAttempted(ctx, gameID, 1))

	freshToken, err := a.Unlock(ctx, gameID)
	require.NoError(t, err)
	assert.NotEqual(t, staleToken, freshToken)

	result, err := a.HandleBuzz(ctx, gameID, 2, 2_000_000, staleToken)
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, buzzer.PositionRejected, result.Position)
	assert.Greater(t, result.CooldownRemaining, time.Duration(0))
}

// TestClearForRetryUnblocksNonWinningSeat covers spec scenario S1's
// retry flow: seat 2 buzzes in during the first window but loses to
// seat 1, the judged answer is wrong, and seat 1 alone goes into
// attempted_players. After ClearForRetry and a fresh Unlock, seat 2
// must be able to buzz in again even though it already holds a
// player:2 entry from the first round.
func TestClearForRetryUnblocksNonWinningSeat(t *testing.T) {
	ctx := context.Background()
	a := newArbitrator()
	gameID := "game-retry"

	token, err := a.Unlock(ctx, gameID)
	require.NoError(t, err)

	r1, err := a.HandleBuzz(ctx, gameID, 1, 1_000_000, token)
	require.NoError(t, err)
	assert.True(t, r1.Accepted)
	assert.Equal(t, 1, r1.Winner)

	r2, err := a.HandleBuzz(ctx, gameID, 2, 1_000_050, token)
	require.NoError(t, err)
	assert.True(t, r2.Accepted)
	assert.Equal(t, 2, r2.Position)

	require.NoError(t, a.ClearForRetry(ctx, gameID))
	require.NoError(t, a.MarkAttempted(ctx, gameID, 1))

	freshToken, err := a.Unlock(ctx, gameID)
	require.NoError(t, err)

	result, err := a.HandleBuzz(ctx, gameID, 2, 2_000_000, freshToken)
	require.NoError(t, err)
	assert.True(t, result.Accepted, "seat 2 must be able to retry after ClearForRetry even though it already buzzed once")
	assert.Equal(t, 1, result.Position)
	assert.Equal(t, 2, result.Winner)
}

// TestAlreadyAttemptedRejected covers the -3 rejection path: a seat
// in attempted_players can never buzz again on the current clue, even
// holding a freshly minted token.
func TestAlreadyAttemptedRejected(t *testing.T) {
	ctx := context.Background()
	a := newArbitrator()
	gameID := "game-attempted"

	require.NoError(t, a.MarkAttempted(ctx, gameID, 3))
	token, err := a.Unlock(ctx, gameID)
	require.NoError(t, err)

	result, err := a.HandleBuzz(ctx, gameID, 3, 1_000_000, token)
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, buzzer.PositionAlreadyAttempted, result.Position)
}

// TestFirstBuzzWithoutCooldownRecordAccepted checks that a seat with no
// cooldown entry is accepted on a freshly unlocked buzzer even with a
// client timestamp of 0: the cooldown check reads only the server clock
// and the seat's recorded last buzz, never the client value.
func TestFirstBuzzWithoutCooldownRecordAccepted(t *testing.T) {
	ctx := context.Background()
	a := newArbitrator()
	gameID := "game-boundary"

	token, err := a.Unlock(ctx, gameID)
	require.NoError(t, err)

	result, err := a.HandleBuzz(ctx, gameID, 1, 0, token)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
}

// TestMissingTokenAcceptedFirstUnlock covers the documented
// backward-compatible path: a buzzer that has never been unlocked
// carries no server-side token at all, so an empty client token is
// accepted rather than rejected.
func TestMissingTokenAcceptedFirstUnlock(t *testing.T) {
	ctx := context.Background()
	a := newArbitrator()
	gameID := "game-no-token"

	result, err := a.HandleBuzz(ctx, gameID, 1, 1_000_000, "")
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, 1, result.Position)
}

// TestConcurrentBuzzExactlyOneWinner is the concurrency invariant: no
// matter how many goroutines race HandleBuzz for distinct seats on the
// same unlocked buzzer, exactly one of them is told it is the winner
// at position 1, and every accepted reply agrees on who that winner is.
func TestConcurrentBuzzExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	a := newArbitrator()
	gameID := "game-concurrent"

	token, err := a.Unlock(ctx, gameID)
	require.NoError(t, err)

	const seats = 8
	results := make([]buzzer.Result, seats)
	var wg sync.WaitGroup
	wg.Add(seats)
	for seat := 1; seat <= seats; seat++ {
		seat := seat
		go func() {
			defer wg.Done()
			r, err := a.HandleBuzz(ctx, gameID, seat, int64(seat), token)
			require.NoError(t, err)
			results[seat-1] = r
		}()
	}
	wg.Wait()

	firstPlaceCount := 0
	for _, r := range results {
		require.True(t, r.Accepted)
		if r.Position == 1 {
			firstPlaceCount++
		}
	}
	assert.Equal(t, 1, firstPlaceCount)

	winner := results[0].Winner
	for _, r := range results {
		assert.Equal(t, winner, r.Winner, "every accepted reply must agree on the winner")
	}
}
