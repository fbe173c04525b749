package gateway

import (
	"context"

	"github.com/briarpatch/jeopardy-coordinator/internal/model"
	"github.com/briarpatch/jeopardy-coordinator/internal/roundengine"
	"github.com/briarpatch/jeopardy-coordinator/internal/wire"
)

// Dispatcher binds one game's engine and episode to the dispatch
// table; Hub.run holds one per room and feeds it every inbound frame.
type Dispatcher struct {
	engine    *roundengine.Engine
	episodeID int64
	gameID    string
}

func NewDispatcher(engine *roundengine.Engine, gameID string, episodeID int64) *Dispatcher {
	return &Dispatcher{engine: engine, episodeID: episodeID, gameID: gameID}
}

type handlerFunc func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error)

// handlers is the fixed dispatch table: spec.md section 6's twenty-one
// recognized inbound frame types, each bound to the round engine
// operation it triggers. Fields absent from a frame decode as zero
// values; the engine validates from there.
var handlers = map[string]handlerFunc{
	"buzz": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		seat, _ := f.Int("player_number")
		ts, _ := f.Int("timestamp")
		return d.engine.HandleBuzz(ctx, d.gameID, seat, int64(ts), f.UnlockToken())
	},
	"reveal_clue": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		clueID, _ := f.Int("clue_id")
		return d.engine.RevealClue(ctx, d.gameID, d.episodeID, int64(clueID))
	},
	"enable_buzzer": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		return d.engine.EnableBuzzer(ctx, d.gameID)
	},
	"judge_answer": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		seat, _ := f.Int("player_number")
		correct, _ := f.Bool("correct")
		value, _ := f.Int("value")
		return d.engine.JudgeAnswer(ctx, d.gameID, d.episodeID, seat, correct, value)
	},
	"next_clue": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		return d.engine.NextClue(ctx, d.gameID)
	},
	"reset_game": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		return d.engine.ResetGame(ctx, d.gameID)
	},
	"adjust_score": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		seat, _ := f.Int("player_number")
		adjustment, _ := f.Int("adjustment")
		return d.engine.AdjustScore(ctx, d.gameID, seat, adjustment)
	},
	"start_round": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		round, _ := f.String("round")
		return d.engine.StartRound(ctx, d.gameID, model.RoundType(round))
	},
	"reveal_daily_double": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		return d.engine.RevealDailyDouble(ctx, d.gameID)
	},
	"submit_wager": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		seat, _ := f.Int("player_number")
		wager, _ := f.Int("wager")
		return d.engine.SubmitWager(ctx, d.gameID, seat, wager)
	},
	"show_dd_clue": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		return d.engine.ShowDDClue(ctx, d.gameID, d.episodeID)
	},
	"submit_dd_answer": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		seat, _ := f.Int("player_number")
		answer, _ := f.String("answer")
		return d.engine.SubmitDDAnswer(ctx, d.gameID, seat, answer)
	},
	"judge_dd_answer": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		correct, _ := f.Bool("correct")
		return d.engine.JudgeDDAnswer(ctx, d.gameID, correct)
	},
	"start_final_jeopardy": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		return d.engine.StartFinalJeopardy(ctx, d.gameID, d.episodeID)
	},
	"submit_fj_wager": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		seat, _ := f.Int("player_number")
		wager, _ := f.Int("wager")
		return d.engine.SubmitFJWager(ctx, d.gameID, seat, wager)
	},
	"reveal_fj_clue": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		return d.engine.RevealFJClue(ctx, d.gameID, d.episodeID)
	},
	"start_fj_timer": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		return d.engine.StartFJTimer(ctx, d.gameID)
	},
	"submit_fj_answer": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		seat, _ := f.Int("player_number")
		answer, _ := f.String("answer")
		return d.engine.SubmitFJAnswer(ctx, d.gameID, seat, answer)
	},
	"judge_fj_answer": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		seat, _ := f.Int("player_number")
		correct, _ := f.Bool("correct")
		return d.engine.JudgeFJAnswer(ctx, d.gameID, seat, correct)
	},
	"end_game": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		return d.engine.EndGame(ctx, d.gameID)
	},
	"abandon_game": func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		return d.engine.AbandonGame(ctx, d.gameID)
	},
}

// Dispatch routes one inbound frame through the fixed handler table.
// Unknown types and handler panics both come back as a *wire.ClientError
// rather than propagating, so a single bad frame never takes down the
// session (spec.md section 4.4 / 7).
func (d *Dispatcher) Dispatch(ctx context.Context, f wire.Frame) (b *wire.Broadcast, err error) {
	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = wire.NewClientError("internal error handling %q: %v", f.Type, r)
		}
	}()

	h, ok := handlers[f.Type]
	if !ok {
		return nil, wire.NewClientError("unrecognized frame type %q", f.Type)
	}
	return h(ctx, d, f)
}
