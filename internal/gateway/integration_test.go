package gateway

import (
	"context"
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
	"github.com/briarpatch/jeopardy-coordinator/internal/wire"
)

const testEpisodeID int64 = 1

func fixtureEpisode() *model.Episode {
	return &model.Episode{
		ID: testEpisodeID,
		SingleRound: []model.Category{
			{ID: 10, Name: "SCIENCE", Round: model.RoundSingle, Clues: []model.Clue{
				{ID: 42, Value: 200, Question: "q42", Answer: "a42"},
			}},
		},
	}
}

func newTestEngine(t *testing.T, gameID string) *roundengine.Engine {
	t.Helper()
	ctx := context.Background()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	store := durable.NewGormStore(db)
	require.NoError(t, store.AutoMigrate(ctx))

	require.NoError(t, store.CreateGame(ctx, model.Game{
		ID: gameID, EpisodeID: testEpisodeID, HostID: "host",
		Status: model.StatusActive, CurrentRound: model.RoundSingle, CreatedAt: time.Now(),
	}))
	require.NoError(t, store.AddParticipant(ctx, model.Participant{
		GameID: gameID, PlayerID: "p1", PlayerName: "One", Seat: 1, JoinedAt: time.Now(),
	}))

	cat := catalog.NewMemCatalog(fixtureEpisode())
	eph := memstore.New()
	arb := buzzer.New(eph, 2*time.Second, 24*time.Hour)
	log := coordlog.New(false)
	w := audit.New(store, log, 100)
	locks := keylock.NewRegistry()

	engine := roundengine.New(cat, eph, store, arb, w, locks, log, roundengine.Config{
		LiveStateTTL: 24 * time.Hour,
	})
	require.NoError(t, engine.EnsureLiveState(ctx, gameID, testEpisodeID))
	// EnsureLiveState picks one single-round clue as the session's Daily
	// Double; with one clue in the fixture that is always clue 42, so the
	// set is cleared to keep reveal_clue on the normal clue path.
	require.NoError(t, eph.Del(ctx, ephemeral.DailyDoublesKey(gameID)))
	return engine
}

// TestDispatchRevealClueRoutesThroughEngine exercises the dispatch
// table end to end against a real engine, not just the panic/unknown
// paths, confirming field extraction (clue_id as a JSON float64) and
// broadcast shape line up.
func TestDispatchRevealClueRoutesThroughEngine(t *testing.T) {
	ctx := context.Background()
	gameID := "game-gateway-1"
	engine := newTestEngine(t, gameID)
	d := NewDispatcher(engine, gameID, testEpisodeID)

	b, err := d.Dispatch(ctx, wire.Frame{
		Type:   "reveal_clue",
		Fields: map[string]any{"clue_id": float64(42)},
	})

	require.NoError(t, err)
	require.NotNil(t, b)
	require.Equal(t, "clue_revealed", b.Type)
	require.Equal(t, int64(42), b.Payload["clue_id"])
}

// TestFanOutRespectsHostOnlyScope confirms a ScopeHostOnly broadcast
// reaches only clients marked isHost.
func TestFanOutRespectsHostOnlyScope(t *testing.T) {
	host := &Client{send: make(chan any, 1), isHost: true}
	player := &Client{send: make(chan any, 1), isHost: false}
	h := &Hub{clients: map[*Client]bool{host: true, player: true}}

	h.fanOut(wire.Broadcast{Type: "dd_answer_submitted", Payload: map[string]any{"x": 1}, Scope: wire.ScopeHostOnly})

	select {
	case msg := <-host.send:
		require.Equal(t, "dd_answer_submitted", msg.(map[string]any)["type"])
	default:
		t.Fatal("host should have received the host-only broadcast")
	}
	select {
	case <-player.send:
		t.Fatal("non-host client should not receive a host-only broadcast")
	default:
	}
}
