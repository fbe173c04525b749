package roundengine

import (
	"context"

	"github.com/briarpatch/jeopardy-coordinator/internal/model"
)

// Snapshot is the connect-time view the gateway sends as
// connection_established: enough of the live state for a joining
// client to render the board without waiting for the next broadcast.
type Snapshot struct {
	Status        model.GameStatus
	CurrentRound  model.RoundType
	CurrentClue   int64
	CurrentPlayer int
	Scores        map[int]int
	RevealedClues []int64
}

// Snapshot reads the current live state for gameID. Called once per
// connecting client, never cached, since EnsureLiveState may have just
// materialized it moments earlier on the same connect sequence.
func (e *Engine) Snapshot(ctx context.Context, gameID string) (Snapshot, error) {
	scores, err := e.scores(ctx, gameID)
	if err != nil {
		return Snapshot{}, err
	}
	revealed, err := e.revealedClues(ctx, gameID)
	if err != nil {
		return Snapshot{}, err
	}
	clueID, _ := e.currentClue(ctx, gameID)
	player, _ := e.currentPlayer(ctx, gameID)

	return Snapshot{
		Status:        e.status(ctx, gameID),
		CurrentRound:  e.currentRound(ctx, gameID),
		CurrentClue:   clueID,
		CurrentPlayer: player,
		Scores:        scores,
		RevealedClues: revealed,
	}, nil
}
