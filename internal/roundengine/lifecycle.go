package roundengine

import (
	"context"
	"time"

	"github.com/briarpatch/jeopardy-coordinator/internal/ephemeral"
	"github.com/briarpatch/jeopardy-coordinator/internal/model"
	"github.com/briarpatch/jeopardy-coordinator/internal/wire"
)

// ResetGame zeroes every seat's score (ephemeral and durable), clears
// revealed_clues, returns the round to single, clears current_player,
// clears dd_state, and resets the buzzer. A second reset_game is a
// no-op on top of the first, per spec.md's idempotence law, since
// every field it writes is set to the same fixed value regardless of
// prior state.
func (e *Engine) ResetGame(ctx context.Context, gameID string) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}

	e.locks.Lock(gameID)
	defer e.locks.Unlock(gameID)

	participants, err := e.durable.Participants(ctx, gameID)
	if err != nil {
		return nil, err
	}

	scores := make(map[int]int, len(participants))
	names := make(map[int]string, len(participants))
	for _, p := range participants {
		if err := e.setScore(ctx, gameID, p.Seat, 0); err != nil {
			return nil, err
		}
		if err := e.durable.SetParticipantScore(ctx, gameID, p.Seat, 0); err != nil {
			e.log.Errorf("roundengine: reset score for %s seat %d: %v", gameID, p.Seat, err)
		}
		scores[p.Seat] = 0
		names[p.Seat] = p.PlayerName
	}

	if err := e.ephemeral.Del(ctx, ephemeral.RevealedCluesKey(gameID)); err != nil {
		return nil, err
	}
	if err := e.setCurrentRound(ctx, gameID, model.RoundSingle); err != nil {
		return nil, err
	}
	if err := e.clearCurrentPlayer(ctx, gameID); err != nil {
		return nil, err
	}
	if err := e.clearCurrentClue(ctx, gameID); err != nil {
		return nil, err
	}
	if err := e.clearDDState(ctx, gameID); err != nil {
		return nil, err
	}
	if err := e.clearFJState(ctx, gameID); err != nil {
		return nil, err
	}
	if err := e.arb.ResetForNextClue(ctx, gameID); err != nil {
		return nil, err
	}

	e.audit.Append(gameID, "reset_game", nil, map[string]any{})

	return &wire.Broadcast{
		Type:    "game_reset",
		Payload: map[string]any{"scores": scores, "names": names},
	}, nil
}

// AdjustScore applies an arbitrary signed delta, outside the normal
// judgment flow (host correction).
func (e *Engine) AdjustScore(ctx context.Context, gameID string, seat, delta int) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}

	newScore, err := e.applyScoreDelta(ctx, gameID, seat, delta)
	if err != nil {
		return nil, err
	}

	e.audit.Append(gameID, "adjust_score", strPtr(itoa(seat)), map[string]any{"seat": seat, "adjustment": delta})

	return &wire.Broadcast{
		Type:    "score_adjusted",
		Payload: map[string]any{"player_number": seat, "score": newScore, "adjustment": delta},
	}, nil
}

// EndGame persists ephemeral scores, sets status completed, and
// broadcasts game_completed. A no-op on an already completed/
// abandoned session, per spec.md's idempotence law.
func (e *Engine) EndGame(ctx context.Context, gameID string) (*wire.Broadcast, error) {
	if status := e.status(ctx, gameID); status == model.StatusCompleted || status == model.StatusAbandoned {
		return nil, nil
	}
	return e.terminateGame(ctx, gameID, model.StatusCompleted, "game_completed")
}

// AbandonGame persists ephemeral scores, sets status abandoned, and
// broadcasts game_abandoned. Also idempotent on an already-terminal
// session.
func (e *Engine) AbandonGame(ctx context.Context, gameID string) (*wire.Broadcast, error) {
	if status := e.status(ctx, gameID); status == model.StatusCompleted || status == model.StatusAbandoned {
		return nil, nil
	}
	return e.terminateGame(ctx, gameID, model.StatusAbandoned, "game_abandoned")
}

func (e *Engine) terminateGame(ctx context.Context, gameID string, status model.GameStatus, broadcastType string) (*wire.Broadcast, error) {
	scores, err := e.scores(ctx, gameID)
	if err != nil {
		return nil, err
	}
	for seat, score := range scores {
		if err := e.durable.SetParticipantScore(ctx, gameID, seat, score); err != nil {
			e.log.Errorf("roundengine: persist score on terminate for %s seat %d: %v", gameID, seat, err)
		}
	}

	now := time.Now()
	if err := e.durable.SetGameStatus(ctx, gameID, status, &now); err != nil {
		return nil, err
	}
	if err := e.setStatus(ctx, gameID, status); err != nil {
		return nil, err
	}

	e.audit.Append(gameID, broadcastType, nil, map[string]any{"scores": scores})

	return &wire.Broadcast{
		Type:    broadcastType,
		Payload: map[string]any{"scores": scores},
	}, nil
}
