package roundengine_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/briarpatch/jeopardy-coordinator/internal/audit"
	"github.com/briarpatch/jeopardy-coordinator/internal/buzzer"
	"github.com/briarpatch/jeopardy-coordinator/internal/catalog"
	"github.com/briarpatch/jeopardy-coordinator/internal/coordlog"
	"github.com/briarpatch/jeopardy-coordinator/internal/durable"
	"github.com/briarpatch/jeopardy-coordinator/internal/ephemeral"
	"github.com/briarpatch/jeopardy-coordinator/internal/ephemeral/memstore"
	"github.com/briarpatch/jeopardy-coordinator/internal/keylock"
	"github.com/briarpatch/jeopardy-coordinator/internal/model"
	"github.com/briarpatch/jeopardy-coordinator/internal/roundengine"
)

const testEpisodeID int64 = 1

func fixtureEpisode() *model.Episode {
	return &model.Episode{
		ID: testEpisodeID,
		SingleRound: []model.Category{
			{ID: 10, Name: "SCIENCE", Round: model.RoundSingle, Clues: []model.Clue{
				{ID: 42, Value: 200, Question: "q42", Answer: "a42"},
				{ID: 99, Value: 400, Question: "q99", Answer: "a99"},
			}},
		},
		DoubleRound: []model.Category{
			{ID: 20, Name: "HISTORY", Round: model.RoundDouble, Clues: []model.Clue{
				{ID: 200, Value: 400, Question: "q200", Answer: "a200"},
			}},
			{ID: 21, Name: "GEOGRAPHY", Round: model.RoundDouble, Clues: []model.Clue{
				{ID: 210, Value: 400, Question: "q210", Answer: "a210"},
			}},
		},
		FinalCategory: &model.Category{
			ID: 30, Name: "WORLD CAPITALS", Round: model.RoundFinal,
			Clues: []model.Clue{{ID: 300, Question: "fq", Answer: "fa"}},
		},
	}
}

type harness struct {
	engine  *roundengine.Engine
	durable *durable.GormStore
	eph     *memstore.Store
	gameID  string
	t       *testing.T
}

// forceDailyDouble overwrites the session's authoritative daily_doubles
// set with exactly clueID, for tests that need a deterministic DD
// clue rather than EnsureLiveState's random selection.
func (h *harness) forceDailyDouble(clueID int64) {
	ctx := context.Background()
	require.NoError(h.t, h.eph.Del(ctx, ephemeral.DailyDoublesKey(h.gameID)))
	require.NoError(h.t, h.eph.SAdd(ctx, ephemeral.DailyDoublesKey(h.gameID), strconv.FormatInt(clueID, 10)))
}

func newHarness(t *testing.T, gameID string, seats []int) *harness {
	t.Helper()
	ctx := context.Background()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	store := durable.NewGormStore(db)
	require.NoError(t, store.AutoMigrate(ctx))

	require.NoError(t, store.CreateGame(ctx, model.Game{
		ID:           gameID,
		EpisodeID:    testEpisodeID,
		HostID:       "host",
		Status:       model.StatusActive,
		CurrentRound: model.RoundSingle,
		CreatedAt:    time.Now(),
	}))
	for _, seat := range seats {
		require.NoError(t, store.AddParticipant(ctx, model.Participant{
			GameID:     gameID,
			PlayerID:   "player",
			PlayerName: "Player",
			Seat:       seat,
			JoinedAt:   time.Now(),
		}))
	}

	cat := catalog.NewMemCatalog(fixtureEpisode())
	eph := memstore.New()
	arb := buzzer.New(eph, 2*time.Second, 24*time.Hour)
	log := coordlog.New(false)
	writer := audit.New(store, log, 100)
	locks := keylock.NewRegistry()

	engine := roundengine.New(cat, eph, store, arb, writer, locks, log, roundengine.Config{
		LiveStateTTL:   24 * time.Hour,
		FJTimerSeconds: 30,
	})

	require.NoError(t, engine.EnsureLiveState(ctx, gameID, testEpisodeID))

	return &harness{engine: engine, durable: store, eph: eph, gameID: gameID, t: t}
}
