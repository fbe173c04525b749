package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briarpatch/jeopardy-coordinator/internal/wire"
)

// TestDispatchUnknownTypeReturnsClientError covers spec.md section
// 4.4: unrecognized frame types return a per-client error frame
// rather than doing nothing or panicking.
func TestDispatchUnknownTypeReturnsClientError(t *testing.T) {
	d := NewDispatcher(nil, "game-x", 1)

	b, err := d.Dispatch(context.Background(), wire.Frame{Type: "not_a_real_type"})

	assert.Nil(t, b)
	require.Error(t, err)
	var clientErr *wire.ClientError
	assert.ErrorAs(t, err, &clientErr)
}

// TestDispatchHandlerPanicRecovered covers the other half of spec.md
// section 4.4/7: a handler panic must not terminate the session, only
// surface as a per-client error frame.
func TestDispatchHandlerPanicRecovered(t *testing.T) {
	const panicType = "__test_panic__"
	handlers[panicType] = func(ctx context.Context, d *Dispatcher, f wire.Frame) (*wire.Broadcast, error) {
		panic("simulated handler fault")
	}
	defer delete(handlers, panicType)

	d := NewDispatcher(nil, "game-x", 1)

	b, err := d.Dispatch(context.Background(), wire.Frame{Type: panicType})

	assert.Nil(t, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "simulated handler fault")
}

// TestDispatchTableHasAllTwentyOneFrameTypes is a light smoke check that
// the table actually contains every one of spec.md section 6's
// twenty-one inbound types, so a typo in a key silently dropping a type
// would fail loudly here instead of only at runtime.
func TestDispatchTableHasAllTwentyOneFrameTypes(t *testing.T) {
	want := []string{
		"buzz", "reveal_clue", "enable_buzzer", "judge_answer", "next_clue",
		"reset_game", "adjust_score", "start_round", "reveal_daily_double",
		"submit_wager", "show_dd_clue", "submit_dd_answer", "judge_dd_answer",
		"start_final_jeopardy", "submit_fj_wager", "reveal_fj_clue",
		"start_fj_timer", "submit_fj_answer", "judge_fj_answer",
		"end_game", "abandon_game",
	}
	require.Len(t, want, 21)
	for _, typ := range want {
		_, ok := handlers[typ]
		assert.True(t, ok, "missing handler for %q", typ)
	}
}
