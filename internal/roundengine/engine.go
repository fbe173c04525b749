// Package roundengine is the Round State Machine: it orchestrates a
// single clue's lifecycle (reveal -> enable -> buzz -> judge ->
// return), the Daily Double wager sub-flow, the Final Jeopardy
// sub-flow, and whole-game lifecycle operations (reset, adjust,
// end, abandon). Every exported method returns a (*wire.Broadcast,
// error) pair: success is an event to fan out to the room, failure is
// either a per-client wire.ClientError (validation/conflict) or an
// unexpected error (persistence fault, logged upstream by the caller).
package roundengine

import (
	"context"
	"math/rand"
	"time"

	"github.com/briarpatch/jeopardy-coordinator/internal/audit"
	"github.com/briarpatch/jeopardy-coordinator/internal/buzzer"
	"github.com/briarpatch/jeopardy-coordinator/internal/catalog"
	"github.com/briarpatch/jeopardy-coordinator/internal/coordlog"
	"github.com/briarpatch/jeopardy-coordinator/internal/durable"
	"github.com/briarpatch/jeopardy-coordinator/internal/ephemeral"
	"github.com/briarpatch/jeopardy-coordinator/internal/keylock"
	"github.com/briarpatch/jeopardy-coordinator/internal/model"
)

const (
	roundCapSingle = 1000
	roundCapDouble = 2000
	ddMinWager     = 5
)

// Engine holds every collaborator the round state machine needs.
// locks generalizes the teacher's single Hub.mu sync.RWMutex to one
// advisory mutex per game id, used for the multi-key invariants the
// buzzer's Lua script doesn't cover (reset_game, next_clue's full
// state clear).
type Engine struct {
	catalog   catalog.Catalog
	ephemeral ephemeral.Store
	durable   durable.Store
	arb       *buzzer.Arbitrator
	audit     *audit.Writer
	locks     *keylock.Registry
	log       *coordlog.Logger

	liveStateTTL   time.Duration
	fjTimerSeconds int
}

// Config bundles the tunables cmd/coordinator exposes as flags.
type Config struct {
	LiveStateTTL   time.Duration
	FJTimerSeconds int
}

func New(cat catalog.Catalog, eph ephemeral.Store, dur durable.Store, arb *buzzer.Arbitrator, w *audit.Writer, locks *keylock.Registry, log *coordlog.Logger, cfg Config) *Engine {
	if cfg.FJTimerSeconds == 0 {
		cfg.FJTimerSeconds = 30
	}
	return &Engine{
		catalog:        cat,
		ephemeral:      eph,
		durable:        dur,
		arb:            arb,
		audit:          w,
		locks:          locks,
		log:            log,
		liveStateTTL:   cfg.LiveStateTTL,
		fjTimerSeconds: cfg.FJTimerSeconds,
	}
}

// EnsureLiveState implements spec.md section 4.4's connect-sequence
// step 2: lazily materializing a game's ephemeral state the first time
// any client connects, selecting Daily Doubles and zeroing every
// seat's score. It is idempotent: a game whose state already exists is
// left untouched.
func (e *Engine) EnsureLiveState(ctx context.Context, gameID string, episodeID int64) error {
	var materialize bool
	e.locks.WithLock(gameID, func() {
		_, ok, _ := e.ephemeral.HGet(ctx, ephemeral.StateKey(gameID), "episode_id")
		materialize = !ok
	})
	if !materialize {
		return nil
	}

	episode, err := e.catalog.Episode(ctx, episodeID)
	if err != nil {
		return err
	}

	participants, err := e.durable.Participants(ctx, gameID)
	if err != nil {
		return err
	}

	ddClues := selectDailyDoubles(episode)

	var outerErr error
	e.locks.WithLock(gameID, func() {
		if err := e.ephemeral.HSet(ctx, ephemeral.StateKey(gameID), map[string]string{
			"episode_id":    itoa64(episodeID),
			"status":        string(model.StatusActive),
			"current_round": string(model.RoundSingle),
			"current_clue":  "",
			"current_player": "0",
		}); err != nil {
			outerErr = err
			return
		}

		for _, p := range participants {
			if err := e.ephemeral.HSet(ctx, ephemeral.ScoresKey(gameID), map[string]string{itoa(p.Seat): "0"}); err != nil {
				outerErr = err
				return
			}
		}

		if len(ddClues) > 0 {
			strs := make([]string, len(ddClues))
			for i, id := range ddClues {
				strs[i] = itoa64(id)
			}
			if err := e.ephemeral.SAdd(ctx, ephemeral.DailyDoublesKey(gameID), strs...); err != nil {
				outerErr = err
				return
			}
		}

		e.refreshTTL(ctx, gameID)
	})
	return outerErr
}

// selectDailyDoubles implements spec.md's selection rule: one random
// single-round clue, two random clues from two distinct double-round
// categories.
func selectDailyDoubles(episode *model.Episode) []int64 {
	var ids []int64

	singleClues := allClues(episode.SingleRound)
	if len(singleClues) > 0 {
		ids = append(ids, singleClues[rand.Intn(len(singleClues))])
	}

	doubleCats := episode.DoubleRound
	if len(doubleCats) >= 2 {
		perm := rand.Perm(len(doubleCats))
		picked := 0
		for _, idx := range perm {
			clues := doubleCats[idx].Clues
			if len(clues) == 0 {
				continue
			}
			ids = append(ids, clues[rand.Intn(len(clues))].ID)
			picked++
			if picked == 2 {
				break
			}
		}
	}
	return ids
}

func allClues(categories []model.Category) []int64 {
	var out []int64
	for _, c := range categories {
		for _, clue := range c.Clues {
			out = append(out, clue.ID)
		}
	}
	return out
}

func (e *Engine) refreshTTL(ctx context.Context, gameID string) {
	for _, k := range ephemeral.AllKeys(gameID) {
		_ = e.ephemeral.Expire(ctx, k, e.liveStateTTL)
	}
}
