package roundengine

import (
	"context"
	"time"

	"github.com/briarpatch/jeopardy-coordinator/internal/ephemeral"
	"github.com/briarpatch/jeopardy-coordinator/internal/model"
	"github.com/briarpatch/jeopardy-coordinator/internal/wire"
)

// rejectIfTerminal enforces spec.md section 3's invariant that a
// session in status completed or abandoned rejects every
// state-mutating command. Callers that implement the idempotent
// end/abandon transitions themselves (EndGame, AbandonGame) do not
// call this.
func (e *Engine) rejectIfTerminal(ctx context.Context, gameID string) error {
	switch e.status(ctx, gameID) {
	case model.StatusCompleted, model.StatusAbandoned:
		return wire.NewClientError("game %s has already ended", gameID)
	}
	return nil
}

// recordClueReveal persists the Clue Reveal Record synchronously when
// a reveal closes (spec.md section 3), mirroring applyScoreDelta's
// best-effort pattern: a durable-store fault is logged, never
// propagated to the client, since the live game must keep moving even
// if the audit trail falls behind.
func (e *Engine) recordClueReveal(ctx context.Context, gameID string, clueID int64, revealerSeat, buzzWinner *int, correct model.Correctness) {
	err := e.durable.RecordClueReveal(ctx, model.ClueRevealRecord{
		GameID:       gameID,
		ClueID:       clueID,
		RevealerSeat: revealerSeat,
		BuzzWinner:   buzzWinner,
		Correct:      correct,
		RevealedAt:   time.Now(),
	})
	if err != nil {
		e.log.Errorf("roundengine: record clue reveal for %s clue %d: %v", gameID, clueID, err)
	}
}

func (e *Engine) status(ctx context.Context, gameID string) model.GameStatus {
	v, _, _ := e.ephemeral.HGet(ctx, ephemeral.StateKey(gameID), "status")
	return model.GameStatus(v)
}

func (e *Engine) setStatus(ctx context.Context, gameID string, status model.GameStatus) error {
	return e.ephemeral.HSet(ctx, ephemeral.StateKey(gameID), map[string]string{"status": string(status)})
}

func (e *Engine) currentRound(ctx context.Context, gameID string) model.RoundType {
	v, _, _ := e.ephemeral.HGet(ctx, ephemeral.StateKey(gameID), "current_round")
	return model.RoundType(v)
}

func (e *Engine) setCurrentRound(ctx context.Context, gameID string, round model.RoundType) error {
	return e.ephemeral.HSet(ctx, ephemeral.StateKey(gameID), map[string]string{"current_round": string(round)})
}

// currentClue returns 0, false when no clue is active.
func (e *Engine) currentClue(ctx context.Context, gameID string) (int64, bool) {
	v, ok, _ := e.ephemeral.HGet(ctx, ephemeral.StateKey(gameID), "current_clue")
	if !ok || v == "" {
		return 0, false
	}
	return atoi64(v), true
}

func (e *Engine) setCurrentClue(ctx context.Context, gameID string, clueID int64) error {
	return e.ephemeral.HSet(ctx, ephemeral.StateKey(gameID), map[string]string{"current_clue": itoa64(clueID)})
}

func (e *Engine) clearCurrentClue(ctx context.Context, gameID string) error {
	return e.ephemeral.HSet(ctx, ephemeral.StateKey(gameID), map[string]string{"current_clue": ""})
}

// currentPlayer returns 0, false when unset.
func (e *Engine) currentPlayer(ctx context.Context, gameID string) (int, bool) {
	v, ok, _ := e.ephemeral.HGet(ctx, ephemeral.StateKey(gameID), "current_player")
	if !ok {
		return 0, false
	}
	seat := atoi(v)
	if seat == 0 {
		return 0, false
	}
	return seat, true
}

func (e *Engine) setCurrentPlayer(ctx context.Context, gameID string, seat int) error {
	return e.ephemeral.HSet(ctx, ephemeral.StateKey(gameID), map[string]string{"current_player": itoa(seat)})
}

func (e *Engine) clearCurrentPlayer(ctx context.Context, gameID string) error {
	return e.setCurrentPlayer(ctx, gameID, 0)
}

func (e *Engine) scores(ctx context.Context, gameID string) (map[int]int, error) {
	raw, err := e.ephemeral.HGetAll(ctx, ephemeral.ScoresKey(gameID))
	if err != nil {
		return nil, err
	}
	out := make(map[int]int, len(raw))
	for seatStr, scoreStr := range raw {
		out[atoi(seatStr)] = atoi(scoreStr)
	}
	return out, nil
}

func (e *Engine) score(ctx context.Context, gameID string, seat int) (int, error) {
	v, _, err := e.ephemeral.HGet(ctx, ephemeral.ScoresKey(gameID), itoa(seat))
	if err != nil {
		return 0, err
	}
	return atoi(v), nil
}

func (e *Engine) setScore(ctx context.Context, gameID string, seat int, score int) error {
	return e.ephemeral.HSet(ctx, ephemeral.ScoresKey(gameID), map[string]string{itoa(seat): itoa(score)})
}

// applyScoreDelta updates both the ephemeral score (authoritative for
// live play) and, synchronously, the durable participant row via the
// audit writer, per spec.md section 4.5.
func (e *Engine) applyScoreDelta(ctx context.Context, gameID string, seat int, delta int) (int, error) {
	cur, err := e.score(ctx, gameID, seat)
	if err != nil {
		return 0, err
	}
	newScore := cur + delta
	if err := e.setScore(ctx, gameID, seat, newScore); err != nil {
		return 0, err
	}
	if err := e.audit.RecordScoreChange(ctx, gameID, seat, newScore); err != nil {
		e.log.Errorf("roundengine: persist score for %s seat %d: %v", gameID, seat, err)
	}
	return newScore, nil
}

func (e *Engine) isRevealed(ctx context.Context, gameID string, clueID int64) (bool, error) {
	return e.ephemeral.SIsMember(ctx, ephemeral.RevealedCluesKey(gameID), itoa64(clueID))
}

func (e *Engine) markRevealed(ctx context.Context, gameID string, clueID int64) error {
	return e.ephemeral.SAdd(ctx, ephemeral.RevealedCluesKey(gameID), itoa64(clueID))
}

func (e *Engine) revealedClues(ctx context.Context, gameID string) ([]int64, error) {
	raw, err := e.ephemeral.SMembers(ctx, ephemeral.RevealedCluesKey(gameID))
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(raw))
	for i, s := range raw {
		out[i] = atoi64(s)
	}
	return out, nil
}

func (e *Engine) isDailyDouble(ctx context.Context, gameID string, clueID int64) (bool, error) {
	return e.ephemeral.SIsMember(ctx, ephemeral.DailyDoublesKey(gameID), itoa64(clueID))
}

func (e *Engine) roundCap(round model.RoundType) int {
	if round == model.RoundDouble {
		return roundCapDouble
	}
	return roundCapSingle
}

// ddState reads the Daily Double sub-state hash. stage == "" means no
// DD flow is in progress.
type ddState struct {
	stage        string
	playerNumber int
	wager        int
	answer       string
}

func (e *Engine) getDDState(ctx context.Context, gameID string) (ddState, error) {
	raw, err := e.ephemeral.HGetAll(ctx, ephemeral.DDStateKey(gameID))
	if err != nil {
		return ddState{}, err
	}
	return ddState{
		stage:        raw["stage"],
		playerNumber: atoi(raw["player_number"]),
		wager:        atoi(raw["wager"]),
		answer:       raw["answer"],
	}, nil
}

func (e *Engine) setDDState(ctx context.Context, gameID string, s ddState) error {
	return e.ephemeral.HSet(ctx, ephemeral.DDStateKey(gameID), map[string]string{
		"stage":         s.stage,
		"player_number": itoa(s.playerNumber),
		"wager":         itoa(s.wager),
		"answer":        s.answer,
	})
}

func (e *Engine) clearDDState(ctx context.Context, gameID string) error {
	return e.ephemeral.Del(ctx, ephemeral.DDStateKey(gameID))
}

// fjState reads the Final Jeopardy sub-state hash.
type fjState struct {
	stage    string
	clueID   int64
	category string
}

func (e *Engine) getFJState(ctx context.Context, gameID string) (fjState, error) {
	raw, err := e.ephemeral.HGetAll(ctx, ephemeral.FJStateKey(gameID))
	if err != nil {
		return fjState{}, err
	}
	return fjState{
		stage:    raw["stage"],
		clueID:   atoi64(raw["clue_id"]),
		category: raw["category"],
	}, nil
}

func (e *Engine) setFJState(ctx context.Context, gameID string, s fjState) error {
	return e.ephemeral.HSet(ctx, ephemeral.FJStateKey(gameID), map[string]string{
		"stage":    s.stage,
		"clue_id":  itoa64(s.clueID),
		"category": s.category,
	})
}

func (e *Engine) fjWagers(ctx context.Context, gameID string) (map[int]int, error) {
	raw, err := e.ephemeral.HGetAll(ctx, ephemeral.FJWagersKey(gameID))
	if err != nil {
		return nil, err
	}
	out := make(map[int]int, len(raw))
	for seatStr, v := range raw {
		out[atoi(seatStr)] = atoi(v)
	}
	return out, nil
}

func (e *Engine) setFJWager(ctx context.Context, gameID string, seat, wager int) error {
	return e.ephemeral.HSet(ctx, ephemeral.FJWagersKey(gameID), map[string]string{itoa(seat): itoa(wager)})
}

func (e *Engine) setFJAnswer(ctx context.Context, gameID string, seat int, answer string) error {
	return e.ephemeral.HSet(ctx, ephemeral.FJAnswersKey(gameID), map[string]string{itoa(seat): answer})
}

func (e *Engine) fjJudgedCount(ctx context.Context, gameID string) (int, error) {
	raw, err := e.ephemeral.HGetAll(ctx, ephemeral.FJJudgedKey(gameID))
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}

func (e *Engine) markFJJudged(ctx context.Context, gameID string, seat int) error {
	return e.ephemeral.HSet(ctx, ephemeral.FJJudgedKey(gameID), map[string]string{itoa(seat): "1"})
}

func (e *Engine) clearFJState(ctx context.Context, gameID string) error {
	return e.ephemeral.Del(ctx,
		ephemeral.FJStateKey(gameID),
		ephemeral.FJWagersKey(gameID),
		ephemeral.FJAnswersKey(gameID),
		ephemeral.FJJudgedKey(gameID),
	)
}
