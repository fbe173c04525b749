package roundengine

import (
	"context"

	"github.com/briarpatch/jeopardy-coordinator/internal/ephemeral"
	"github.com/briarpatch/jeopardy-coordinator/internal/model"
	"github.com/briarpatch/jeopardy-coordinator/internal/wire"
)

// RevealClue implements spec.md 4.3's reveal_clue transition: valid
// only when idle (no current clue). Diverges into the Daily Double
// flow when the session's authoritative daily_doubles set contains
// this clue, per spec.md's explicit override of the catalog's
// IsDailyDouble flag.
func (e *Engine) RevealClue(ctx context.Context, gameID string, episodeID, clueID int64) (*wire.Broadcast, error) {
	if e.status(ctx, gameID) != model.StatusActive {
		return nil, wire.NewClientError("game is not active")
	}
	if _, active := e.currentClue(ctx, gameID); active {
		return nil, wire.NewClientError("a clue is already in progress")
	}

	clue, err := e.catalog.Clue(ctx, episodeID, clueID)
	if err != nil {
		return nil, wire.NewClientError("clue %d does not belong to this episode", clueID)
	}

	alreadyRevealed, err := e.isRevealed(ctx, gameID, clueID)
	if err != nil {
		return nil, err
	}
	if alreadyRevealed {
		return nil, wire.NewClientError("clue %d has already been revealed", clueID)
	}

	if err := e.markRevealed(ctx, gameID, clueID); err != nil {
		return nil, err
	}
	if err := e.setCurrentClue(ctx, gameID, clueID); err != nil {
		return nil, err
	}
	if err := e.arb.Lock(ctx, gameID); err != nil {
		return nil, err
	}

	isDD, err := e.isDailyDouble(ctx, gameID, clueID)
	if err != nil {
		return nil, err
	}

	e.audit.Append(gameID, "reveal_clue", nil, map[string]any{"clue_id": clueID})

	if isDD {
		player, _ := e.currentPlayer(ctx, gameID)
		if player == 0 {
			player = 1
		}
		if err := e.setDDState(ctx, gameID, ddState{stage: "detected", playerNumber: player}); err != nil {
			return nil, err
		}
		return &wire.Broadcast{
			Type: "daily_double_detected",
			Payload: map[string]any{
				"player_number": player,
			},
		}, nil
	}

	return &wire.Broadcast{
		Type: "clue_revealed",
		Payload: map[string]any{
			"clue_id":  clue.ID,
			"question": clue.Question,
			"answer":   clue.Answer,
			"value":    clue.Value,
		},
	}, nil
}

// EnableBuzzer implements the host-triggered revealed -> enabled
// transition: mints a fresh unlock token and broadcasts it.
func (e *Engine) EnableBuzzer(ctx context.Context, gameID string) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}
	if _, active := e.currentClue(ctx, gameID); !active {
		return nil, wire.NewClientError("no clue is currently active")
	}
	token, err := e.arb.Unlock(ctx, gameID)
	if err != nil {
		return nil, err
	}
	e.audit.Append(gameID, "enable_buzzer", nil, map[string]any{})
	return &wire.Broadcast{
		Type:    "buzzer_enabled",
		Payload: map[string]any{"unlock_token": token},
	}, nil
}

// HandleBuzz delegates arbitration to buzzer.Arbitrator and, on the
// winning accept (position == 1), applies the enabled -> buzzed
// transition by recording current_player-elect via the broadcast;
// the actual "has the floor" state is implicit in buzzer.winner until
// JudgeAnswer runs, matching spec.md's micro-state machine exactly.
func (e *Engine) HandleBuzz(ctx context.Context, gameID string, seat int, clientTimestamp int64, unlockToken string) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}

	result, err := e.arb.HandleBuzz(ctx, gameID, seat, clientTimestamp, unlockToken)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"accepted":           result.Accepted,
		"position":           result.Position,
		"winner":             result.Winner,
		"server_timestamp":   result.ServerTimestampUS,
		"cooldown":           result.CooldownRemaining > 0,
		"cooldown_remaining": result.CooldownRemaining.Seconds(),
	}

	e.audit.Append(gameID, "buzz", nil, map[string]any{"seat": seat, "accepted": result.Accepted, "position": result.Position})

	return &wire.Broadcast{Type: "buzz_result", Payload: payload}, nil
}

// JudgeAnswer implements spec.md's judge_answer transition: applies
// +/-value to the buzz winner's score; on correct, sets current_player
// and returns to idle; on incorrect, marks the seat attempted, clears
// the buzzer for retry, and mints a new token for the remaining field.
// When every seat has attempted, the clue is exhausted: the correct
// answer is revealed and the board returns to idle (Open Question
// resolution: return_to_board gains an explicit exhausted flag rather
// than a new event type, see SPEC_FULL.md section 6.5).
func (e *Engine) JudgeAnswer(ctx context.Context, gameID string, episodeID int64, seat int, correct bool, value int) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}

	clueID, active := e.currentClue(ctx, gameID)
	if !active {
		return nil, wire.NewClientError("no clue is currently active")
	}

	delta := value
	if !correct {
		delta = -value
	}
	newScore, err := e.applyScoreDelta(ctx, gameID, seat, delta)
	if err != nil {
		return nil, err
	}

	e.audit.Append(gameID, "judge_answer", strPtr(itoa(seat)), map[string]any{
		"seat": seat, "correct": correct, "value": value, "clue_id": clueID,
	})

	if correct {
		if err := e.setCurrentPlayer(ctx, gameID, seat); err != nil {
			return nil, err
		}
		if err := e.clearCurrentClue(ctx, gameID); err != nil {
			return nil, err
		}
		e.recordClueReveal(ctx, gameID, clueID, nil, intPtr(seat), model.CorrectnessCorrect)
		return &wire.Broadcast{
			Type: "answer_judged",
			Payload: map[string]any{
				"seat": seat, "correct": true, "score": newScore, "clue_id": clueID,
			},
		}, nil
	}

	if err := e.arb.MarkAttempted(ctx, gameID, seat); err != nil {
		return nil, err
	}

	clue, err := e.catalog.Clue(ctx, episodeID, clueID)
	if err != nil {
		return nil, err
	}

	participants, err := e.durable.Participants(ctx, gameID)
	if err != nil {
		return nil, err
	}
	attemptedCount, err := e.countAttempted(ctx, gameID, participants)
	if err != nil {
		return nil, err
	}

	if attemptedCount >= len(participants) {
		if err := e.arb.ResetForNextClue(ctx, gameID); err != nil {
			return nil, err
		}
		if err := e.clearCurrentClue(ctx, gameID); err != nil {
			return nil, err
		}
		e.recordClueReveal(ctx, gameID, clueID, nil, intPtr(seat), model.CorrectnessUnresolved)
		scores, err := e.scores(ctx, gameID)
		if err != nil {
			return nil, err
		}
		return &wire.Broadcast{
			Type: "return_to_board",
			Payload: map[string]any{
				"exhausted": true,
				"clue_id":   clueID,
				"answer":    clue.Answer,
				"scores":    scores,
			},
		}, nil
	}

	if err := e.arb.ClearForRetry(ctx, gameID); err != nil {
		return nil, err
	}
	token, err := e.arb.Unlock(ctx, gameID)
	if err != nil {
		return nil, err
	}

	return &wire.Broadcast{
		Type: "answer_judged",
		Payload: map[string]any{
			"seat": seat, "correct": false, "score": newScore, "clue_id": clueID,
			"unlock_token": token,
		},
	}, nil
}

func (e *Engine) countAttempted(ctx context.Context, gameID string, participants []model.Participant) (int, error) {
	count := 0
	for _, p := range participants {
		attempted, err := e.ephemeral.SIsMember(ctx, ephemeral.AttemptedPlayersKey(gameID), itoa(p.Seat))
		if err != nil {
			return 0, err
		}
		if attempted {
			count++
		}
	}
	return count, nil
}

// NextClue implements spec.md's host-triggered next_clue: full reset
// of per-clue state, clearing current_clue and any dd_state, and
// broadcasting return_to_board with current scores and revealed set.
// On idle it is a no-op broadcast repeating the same information, per
// spec.md's round-trip law.
func (e *Engine) NextClue(ctx context.Context, gameID string) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}

	e.locks.Lock(gameID)
	defer e.locks.Unlock(gameID)

	if err := e.arb.ResetForNextClue(ctx, gameID); err != nil {
		return nil, err
	}
	if err := e.clearCurrentClue(ctx, gameID); err != nil {
		return nil, err
	}
	if err := e.clearDDState(ctx, gameID); err != nil {
		return nil, err
	}

	e.audit.Append(gameID, "next_clue", nil, map[string]any{})

	revealed, err := e.revealedClues(ctx, gameID)
	if err != nil {
		return nil, err
	}
	scores, err := e.scores(ctx, gameID)
	if err != nil {
		return nil, err
	}

	return &wire.Broadcast{
		Type: "return_to_board",
		Payload: map[string]any{
			"revealed_clues": revealed,
			"scores":         scores,
		},
	}, nil
}

// StartRound implements spec.md's start_round transition, including
// the double-round side effect: control passes to the seat with the
// lowest current score (tie-break lowest seat number).
func (e *Engine) StartRound(ctx context.Context, gameID string, round model.RoundType) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}
	if err := e.setCurrentRound(ctx, gameID, round); err != nil {
		return nil, err
	}
	if err := e.ephemeral.Del(ctx, allRoundClearKeys(gameID)...); err != nil {
		return nil, err
	}
	if err := e.clearCurrentClue(ctx, gameID); err != nil {
		return nil, err
	}

	payload := map[string]any{"round": string(round)}

	if round == model.RoundDouble {
		scores, err := e.scores(ctx, gameID)
		if err != nil {
			return nil, err
		}
		lowestSeat, ok := lowestScoreSeat(scores)
		if ok {
			if err := e.setCurrentPlayer(ctx, gameID, lowestSeat); err != nil {
				return nil, err
			}
			payload["current_player"] = lowestSeat
		}
	}

	e.audit.Append(gameID, "start_round", nil, map[string]any{"round": string(round)})

	return &wire.Broadcast{Type: "round_changed", Payload: payload}, nil
}

func lowestScoreSeat(scores map[int]int) (int, bool) {
	seat := 0
	best := 0
	first := true
	for s, score := range scores {
		if first || score < best || (score == best && s < seat) {
			seat, best, first = s, score, false
		}
	}
	return seat, !first
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func allRoundClearKeys(gameID string) []string {
	return []string{
		ephemeral.RevealedCluesKey(gameID),
	}
}
