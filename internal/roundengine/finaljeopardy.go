package roundengine

import (
	"context"
	"time"

	"github.com/briarpatch/jeopardy-coordinator/internal/model"
	"github.com/briarpatch/jeopardy-coordinator/internal/wire"
)

// StartFinalJeopardy fetches the episode's single final category and
// clue and broadcasts the category name only, per spec.md.
func (e *Engine) StartFinalJeopardy(ctx context.Context, gameID string, episodeID int64) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}
	category, clue, err := e.catalog.FinalCategory(ctx, episodeID)
	if err != nil {
		return nil, err
	}

	if err := e.setCurrentRound(ctx, gameID, model.RoundFinal); err != nil {
		return nil, err
	}
	if err := e.setFJState(ctx, gameID, fjState{stage: "category_shown", clueID: clue.ID, category: category.Name}); err != nil {
		return nil, err
	}

	e.audit.Append(gameID, "start_final_jeopardy", nil, map[string]any{"category": category.Name})

	return &wire.Broadcast{
		Type:    "fj_category_shown",
		Payload: map[string]any{"category": category.Name},
	}, nil
}

// SubmitFJWager stores one seat's private wager. Per spec.md, wagers
// are stored individually and the coordinator does not gate on all
// arriving — the host decides when to proceed. A wager w must satisfy
// 0 <= w <= max(0, score).
func (e *Engine) SubmitFJWager(ctx context.Context, gameID string, seat, wager int) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}
	state, err := e.getFJState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if state.stage == "" {
		return nil, wire.NewClientError("final jeopardy has not started")
	}

	score, err := e.score(ctx, gameID, seat)
	if err != nil {
		return nil, err
	}
	maxWager := score
	if maxWager < 0 {
		maxWager = 0
	}
	if wager < 0 || wager > maxWager {
		return nil, wire.NewClientError("wager must satisfy 0 <= wager <= %d", maxWager)
	}

	if err := e.setFJWager(ctx, gameID, seat, wager); err != nil {
		return nil, err
	}

	e.audit.Append(gameID, "submit_fj_wager", strPtr(itoa(seat)), map[string]any{"seat": seat, "wager": wager})

	return &wire.Broadcast{
		Type:    "fj_wager_submitted",
		Payload: map[string]any{"player_number": seat},
		Scope:   wire.ScopeHostOnly,
	}, nil
}

// RevealFJClue broadcasts the full clue text without starting the
// timer.
func (e *Engine) RevealFJClue(ctx context.Context, gameID string, episodeID int64) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}
	state, err := e.getFJState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if state.stage == "" {
		return nil, wire.NewClientError("final jeopardy has not started")
	}
	clue, err := e.catalog.Clue(ctx, episodeID, state.clueID)
	if err != nil {
		return nil, err
	}

	state.stage = "clue_revealed"
	if err := e.setFJState(ctx, gameID, state); err != nil {
		return nil, err
	}

	e.audit.Append(gameID, "reveal_fj_clue", nil, map[string]any{"clue_id": clue.ID})

	return &wire.Broadcast{
		Type:    "fj_clue_revealed",
		Payload: map[string]any{"clue_id": clue.ID, "question": clue.Question, "answer": clue.Answer},
	}, nil
}

// StartFJTimer broadcasts the advisory duration. Per spec.md's
// explicit Open Question resolution, the coordinator does not enforce
// this timer; clients render it and may submit late without
// rejection.
func (e *Engine) StartFJTimer(ctx context.Context, gameID string) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}
	state, err := e.getFJState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if state.stage == "" {
		return nil, wire.NewClientError("final jeopardy has not started")
	}

	state.stage = "timer_running"
	if err := e.setFJState(ctx, gameID, state); err != nil {
		return nil, err
	}

	e.audit.Append(gameID, "start_fj_timer", nil, map[string]any{"duration_seconds": e.fjTimerSeconds})

	return &wire.Broadcast{
		Type:    "fj_timer_started",
		Payload: map[string]any{"duration_seconds": e.fjTimerSeconds},
	}, nil
}

// SubmitFJAnswer stores a seat's private answer text, forwarded to
// the host.
func (e *Engine) SubmitFJAnswer(ctx context.Context, gameID string, seat int, answer string) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}
	state, err := e.getFJState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if state.stage == "" {
		return nil, wire.NewClientError("final jeopardy has not started")
	}

	if err := e.setFJAnswer(ctx, gameID, seat, answer); err != nil {
		return nil, err
	}

	e.audit.Append(gameID, "submit_fj_answer", strPtr(itoa(seat)), map[string]any{"seat": seat})

	return &wire.Broadcast{
		Type:    "fj_answer_submitted",
		Payload: map[string]any{"player_number": seat, "answer": answer},
		Scope:   wire.ScopeHostOnly,
	}, nil
}

// JudgeFJAnswer applies +/-wager to a seat's score. When the number of
// judged seats reaches the roster size, the game auto-completes:
// ephemeral scores persist to participant rows, status becomes
// completed, and game_completed broadcasts final scores.
func (e *Engine) JudgeFJAnswer(ctx context.Context, gameID string, seat int, correct bool) (*wire.Broadcast, error) {
	if err := e.rejectIfTerminal(ctx, gameID); err != nil {
		return nil, err
	}
	state, err := e.getFJState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if state.stage == "" {
		return nil, wire.NewClientError("final jeopardy has not started")
	}

	wagers, err := e.fjWagers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	wager := wagers[seat]
	delta := wager
	if !correct {
		delta = -wager
	}
	newScore, err := e.applyScoreDelta(ctx, gameID, seat, delta)
	if err != nil {
		return nil, err
	}
	if err := e.markFJJudged(ctx, gameID, seat); err != nil {
		return nil, err
	}

	e.audit.Append(gameID, "judge_fj_answer", strPtr(itoa(seat)), map[string]any{
		"seat": seat, "correct": correct, "wager": wager,
	})

	judgedCount, err := e.fjJudgedCount(ctx, gameID)
	if err != nil {
		return nil, err
	}
	participants, err := e.durable.Participants(ctx, gameID)
	if err != nil {
		return nil, err
	}

	if judgedCount >= len(participants) {
		return e.completeGame(ctx, gameID)
	}

	return &wire.Broadcast{
		Type:    "fj_answer_judged",
		Payload: map[string]any{"player_number": seat, "correct": correct, "score": newScore},
	}, nil
}

func (e *Engine) completeGame(ctx context.Context, gameID string) (*wire.Broadcast, error) {
	scores, err := e.scores(ctx, gameID)
	if err != nil {
		return nil, err
	}
	for seat, score := range scores {
		if err := e.durable.SetParticipantScore(ctx, gameID, seat, score); err != nil {
			e.log.Errorf("roundengine: persist final score for %s seat %d: %v", gameID, seat, err)
		}
	}

	now := time.Now()
	if err := e.durable.SetGameStatus(ctx, gameID, model.StatusCompleted, &now); err != nil {
		return nil, err
	}
	if err := e.setStatus(ctx, gameID, model.StatusCompleted); err != nil {
		return nil, err
	}

	e.audit.Append(gameID, "game_completed", nil, map[string]any{"scores": scores})

	return &wire.Broadcast{
		Type:    "game_completed",
		Payload: map[string]any{"scores": scores},
	}, nil
}
