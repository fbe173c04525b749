// Package buzzer arbitrates simultaneous buzz-ins for a single game,
// the one place in the coordinator where a handful of microseconds
// decides an outcome. Every decision runs as one atomic script against
// internal/ephemeral.Store so two participants racing to buzz can never
// both be told they won.
package buzzer

import (
	"context"
	"strconv"
	"time"

	"github.com/briarpatch/jeopardy-coordinator/internal/ephemeral"
)

// Rejection reasons, returned as negative Result.Position values,
// carried from the original engine's handle_buzz three-way rejection
// split (already attempted / still cooling down / locked-or-stale).
const (
	PositionAlreadyAttempted = -3
	PositionCoolingDown      = -2
	PositionRejected         = -1
)

// Result is what HandleBuzz reports back to the round engine: either an
// accepted buzz (Position >= 1, Winner set) or one of the rejection
// codes above, always carrying the server-authoritative timestamp the
// caller should use for audit and tie-break display.
type Result struct {
	Accepted          bool
	Position          int
	Winner            int
	CooldownRemaining time.Duration
	ServerTimestampUS int64
}

// Arbitrator wraps an ephemeral.Store with the buzz-handling script and
// the surrounding lifecycle operations (unlock, lock, reset) spec.md's
// buzzer state machine needs between clues.
type Arbitrator struct {
	store        ephemeral.Store
	cooldown     time.Duration
	liveStateTTL time.Duration
}

// New builds an Arbitrator. cooldown is the minimum spacing enforced
// between a seat's buzz attempts: it restarts on every accepted buzz
// and on every locked or stale-token rejection; liveStateTTL is the TTL refreshed
// on every buzzer key write so an abandoned game's Redis footprint
// expires instead of accumulating forever.
func New(store ephemeral.Store, cooldown, liveStateTTL time.Duration) *Arbitrator {
	return &Arbitrator{store: store, cooldown: cooldown, liveStateTTL: liveStateTTL}
}

// HandleBuzz runs the atomic buzz script for seat against gameID's
// buzzer state. clientTimestamp is advisory only: the script stores it
// as the seat's buzz timestamp and never orders by it. The server's own
// UnixMicro() clock is what the script uses for cooldown math and what
// Result.ServerTimestampUS reports; buzz order is the order in which
// script runs complete.
func (a *Arbitrator) HandleBuzz(ctx context.Context, gameID string, seat int, clientTimestamp int64, unlockToken string) (Result, error) {
	serverNow := time.Now().UnixMicro()

	keys := []string{
		ephemeral.BuzzerKey(gameID),
		ephemeral.CooldownKey(gameID),
		ephemeral.AttemptedPlayersKey(gameID),
	}
	args := []string{
		strconv.Itoa(seat),
		strconv.FormatInt(clientTimestamp, 10),
		strconv.FormatInt(serverNow, 10),
		strconv.FormatInt(a.cooldown.Microseconds(), 10),
		unlockToken,
	}

	reply, err := a.store.Eval(ctx, handleBuzzScript, keys, args...)
	if err != nil {
		return Result{}, err
	}

	accepted := toInt64(reply[0]) == 1
	position := int(toInt64(reply[1]))
	winner := int(toInt64(reply[2]))
	cooldownRemaining := time.Duration(toInt64(reply[3])) * time.Microsecond

	if accepted {
		a.refreshTTL(ctx, gameID)
	}

	return Result{
		Accepted:          accepted,
		Position:          position,
		Winner:            winner,
		CooldownRemaining: cooldownRemaining,
		ServerTimestampUS: serverNow,
	}, nil
}

// Unlock opens the buzzer for a new clue, minting a fresh unlock token
// participants must echo back on their next buzz attempt. Using one
// HSET call with both fields keeps the mint-and-open step atomic
// without needing a second Lua script for this simpler path.
func (a *Arbitrator) Unlock(ctx context.Context, gameID string) (string, error) {
	token := strconv.FormatInt(time.Now().UnixMicro(), 10)
	err := a.store.HSet(ctx, ephemeral.BuzzerKey(gameID), map[string]string{
		"locked":       "false",
		"unlock_token": token,
	})
	if err != nil {
		return "", err
	}
	a.refreshTTL(ctx, gameID)
	return token, nil
}

// Lock closes the buzzer without clearing who has already buzzed. The
// round engine calls it when a clue is revealed, so any buzz that
// arrives before the host's Unlock is rejected as premature.
func (a *Arbitrator) Lock(ctx context.Context, gameID string) error {
	return a.store.HSet(ctx, ephemeral.BuzzerKey(gameID), map[string]string{
		"locked": "true",
	})
}

// ResetForNextClue fully clears buzzer state including the
// attempted-players set, for use when the round engine moves to a new
// clue and every seat should be eligible again.
func (a *Arbitrator) ResetForNextClue(ctx context.Context, gameID string) error {
	if err := a.store.Del(ctx,
		ephemeral.BuzzerKey(gameID),
		ephemeral.BuzzerOrderKey(gameID),
		ephemeral.AttemptedPlayersKey(gameID),
	); err != nil {
		return err
	}
	return nil
}

// ClearForRetry reopens the clue to the remaining field after a wrong
// answer, preserving attempted_players so a seat that already had (and
// lost) its attempt on this clue cannot buzz in again. It deletes the
// whole buzzer hash, not just locked/winner/winner_timestamp/count:
// the per-seat player:<N> dedup fields the script checks via HEXISTS
// (script.go) must go too, or every seat that buzzed but lost the
// first race stays permanently blocked from retrying. Callers always
// follow this with Unlock, which rewrites locked and unlock_token.
func (a *Arbitrator) ClearForRetry(ctx context.Context, gameID string) error {
	buzzerKey := ephemeral.BuzzerKey(gameID)
	if err := a.store.Del(ctx, buzzerKey); err != nil {
		return err
	}
	return a.store.Del(ctx, ephemeral.BuzzerOrderKey(gameID))
}

// MarkAttempted adds seat to the clue's attempted set directly. The
// round engine calls it for the seat whose answer was judged incorrect,
// so that seat cannot buzz again on the same clue.
func (a *Arbitrator) MarkAttempted(ctx context.Context, gameID string, seat int) error {
	return a.store.SAdd(ctx, ephemeral.AttemptedPlayersKey(gameID), strconv.Itoa(seat))
}

// Order returns the full arrival order of accepted buzzes for the
// current clue, seat numbers in the order the script RPUSHed them.
func (a *Arbitrator) Order(ctx context.Context, gameID string) ([]int, error) {
	raw, err := a.store.LRange(ctx, ephemeral.BuzzerOrderKey(gameID), 0, -1)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(raw))
	for _, s := range raw {
		out = append(out, int(parseInt64(s)))
	}
	return out, nil
}

func (a *Arbitrator) refreshTTL(ctx context.Context, gameID string) {
	_ = a.store.Expire(ctx, ephemeral.BuzzerKey(gameID), a.liveStateTTL)
	_ = a.store.Expire(ctx, ephemeral.BuzzerOrderKey(gameID), a.liveStateTTL)
	_ = a.store.Expire(ctx, ephemeral.CooldownKey(gameID), a.liveStateTTL)
	_ = a.store.Expire(ctx, ephemeral.AttemptedPlayersKey(gameID), a.liveStateTTL)
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case []byte:
		i, _ := strconv.ParseInt(string(n), 10, 64)
		return i
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}
