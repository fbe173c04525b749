package roundengine

import (
	"context"

	"github.com/briarpatch/jeopardy-coordinator/internal/model"
	"github.com/briarpatch/jeopardy-coordinator/internal/wire"
)

// RevealDailyDouble implements the host's detected -> revealed
// transition: the wagering player is told to wager, clue content
// stays withheld.
func (e *Engine) RevealDailyDouble(ctx context.Context, gameID string) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}
	state, err := e.getDDState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if state.stage != "detected" {
		return nil, wire.NewClientError("no daily double is awaiting reveal")
	}
	state.stage = "revealed"
	if err := e.setDDState(ctx, gameID, state); err != nil {
		return nil, err
	}
	e.audit.Append(gameID, "reveal_daily_double", nil, map[string]any{"player_number": state.playerNumber})
	return &wire.Broadcast{
		Type:    "daily_double_revealed",
		Payload: map[string]any{"player_number": state.playerNumber},
	}, nil
}

// SubmitWager implements spec.md's submit_wager validation: only the
// designated wagering seat may submit; the amount must satisfy
// 5 <= wager <= max(round_cap, score) where round_cap is 1000 in
// single, 2000 in double.
func (e *Engine) SubmitWager(ctx context.Context, gameID string, seat, wager int) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}
	state, err := e.getDDState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if state.stage != "revealed" {
		return nil, wire.NewClientError("no daily double is awaiting a wager")
	}
	if seat != state.playerNumber {
		return nil, wire.NewClientError("seat %d is not the daily double wagerer", seat)
	}
	if wager < ddMinWager {
		return nil, wire.NewClientError("wager must be at least $%d", ddMinWager)
	}

	score, err := e.score(ctx, gameID, seat)
	if err != nil {
		return nil, err
	}
	round := e.currentRound(ctx, gameID)
	maxWager := e.roundCap(round)
	if score > maxWager {
		maxWager = score
	}
	if wager > maxWager {
		return nil, wire.NewClientError("wager must be at most $%d", maxWager)
	}

	state.stage = "wagering"
	state.wager = wager
	if err := e.setDDState(ctx, gameID, state); err != nil {
		return nil, err
	}

	e.audit.Append(gameID, "submit_wager", strPtr(itoa(seat)), map[string]any{"seat": seat, "wager": wager})

	return &wire.Broadcast{
		Type:    "wager_submitted",
		Payload: map[string]any{"player_number": seat, "wager": wager},
	}, nil
}

// ShowDDClue implements the host's wagering -> answering transition,
// broadcasting the full clue (question and answer visible to host).
func (e *Engine) ShowDDClue(ctx context.Context, gameID string, episodeID int64) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}
	state, err := e.getDDState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if state.stage != "wagering" {
		return nil, wire.NewClientError("daily double has no submitted wager yet")
	}
	clueID, active := e.currentClue(ctx, gameID)
	if !active {
		return nil, wire.NewClientError("no clue is currently active")
	}
	clue, err := e.catalog.Clue(ctx, episodeID, clueID)
	if err != nil {
		return nil, err
	}

	state.stage = "answering"
	if err := e.setDDState(ctx, gameID, state); err != nil {
		return nil, err
	}

	e.audit.Append(gameID, "show_dd_clue", nil, map[string]any{"clue_id": clueID})

	return &wire.Broadcast{
		Type: "dd_clue_shown",
		Payload: map[string]any{
			"clue_id":  clue.ID,
			"question": clue.Question,
			"answer":   clue.Answer,
			"value":    clue.Value,
		},
	}, nil
}

// SubmitDDAnswer stores the wagering player's answer text. The
// resulting broadcast is host-only (wire.ScopeHostOnly), so other
// clients never receive the answer text.
func (e *Engine) SubmitDDAnswer(ctx context.Context, gameID string, seat int, answer string) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}
	state, err := e.getDDState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if state.stage != "answering" {
		return nil, wire.NewClientError("daily double is not awaiting an answer")
	}
	if seat != state.playerNumber {
		return nil, wire.NewClientError("seat %d is not the daily double wagerer", seat)
	}

	state.answer = answer
	if err := e.setDDState(ctx, gameID, state); err != nil {
		return nil, err
	}

	e.audit.Append(gameID, "submit_dd_answer", strPtr(itoa(seat)), map[string]any{"seat": seat, "answer": answer})

	return &wire.Broadcast{
		Type:    "dd_answer_submitted",
		Payload: map[string]any{"player_number": seat, "answer": answer},
		Scope:   wire.ScopeHostOnly,
	}, nil
}

// JudgeDDAnswer applies +/-wager to the wagering seat's score,
// transitions answering -> judged, and on correct sets current_player.
func (e *Engine) JudgeDDAnswer(ctx context.Context, gameID string, correct bool) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}
	state, err := e.getDDState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if state.stage != "answering" {
		return nil, wire.NewClientError("daily double is not awaiting judgment")
	}

	delta := state.wager
	if !correct {
		delta = -state.wager
	}
	newScore, err := e.applyScoreDelta(ctx, gameID, state.playerNumber, delta)
	if err != nil {
		return nil, err
	}

	state.stage = "judged"
	if err := e.setDDState(ctx, gameID, state); err != nil {
		return nil, err
	}

	if correct {
		if err := e.setCurrentPlayer(ctx, gameID, state.playerNumber); err != nil {
			return nil, err
		}
	}

	clueID, _ := e.currentClue(ctx, gameID)

	if err := e.clearCurrentClue(ctx, gameID); err != nil {
		return nil, err
	}
	if err := e.clearDDState(ctx, gameID); err != nil {
		return nil, err
	}

	correctness := model.CorrectnessIncorrect
	if correct {
		correctness = model.CorrectnessCorrect
	}
	e.recordClueReveal(ctx, gameID, clueID, nil, intPtr(state.playerNumber), correctness)

	e.audit.Append(gameID, "judge_dd_answer", strPtr(itoa(state.playerNumber)), map[string]any{
		"seat": state.playerNumber, "correct": correct, "wager": state.wager,
	})

	return &wire.Broadcast{
		Type: "dd_answer_judged",
		Payload: map[string]any{
			"player_number": state.playerNumber,
			"correct":       correct,
			"score":         newScore,
		},
	}, nil
}
