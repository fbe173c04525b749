// Package model holds the domain types shared by every coordinator
// package: the read-only catalog shapes, the durable rows, and the
// live (ephemeral) game state.
package model

import (
	"encoding/json"
	"time"
)

// RoundType identifies which of the three rounds a category, clue, or
// game is associated with.
type RoundType string

const (
	RoundSingle RoundType = "single"
	RoundDouble RoundType = "double"
	RoundFinal  RoundType = "final"
)

// GameStatus mirrors the Django source's Game.STATUS_CHOICES.
type GameStatus string

const (
	StatusWaiting   GameStatus = "waiting"
	StatusActive    GameStatus = "active"
	StatusPaused    GameStatus = "paused"
	StatusCompleted GameStatus = "completed"
	StatusAbandoned GameStatus = "abandoned"
)

// Episode is a read-only catalog entry: one game board.
type Episode struct {
	ID             int64
	SeasonNumber   int
	EpisodeNumber  int
	SingleRound    []Category
	DoubleRound    []Category
	FinalCategory  *Category
}

// Category owns an ordered set of Clues.
type Category struct {
	ID        int64
	EpisodeID int64
	Name      string
	Round     RoundType
	Position  int
	Clues     []Clue
}

// Clue is a single question/answer pair. IsDailyDouble is the catalog's
// flag only; per-session Daily Double placement is authoritative (see
// LiveState.DailyDoubles) and callers MUST NOT use this field at
// runtime to decide whether a clue is a Daily Double for a given game.
type Clue struct {
	ID            int64
	CategoryID    int64
	Question      string
	Answer        string
	Value         int
	Position      int
	IsDailyDouble bool
}

// Game is a durable session row.
type Game struct {
	ID           string
	EpisodeID    int64
	HostID       string
	Status       GameStatus
	CurrentRound RoundType
	Settings     json.RawMessage
	CreatedAt    time.Time
	StartedAt    *time.Time
	EndedAt      *time.Time
}

// Participant links a player to a game at a fixed seat.
type Participant struct {
	GameID     string
	PlayerID   string
	PlayerName string
	Seat       int
	Score      int
	FinalWager *int
	JoinedAt   time.Time
}

// RankedParticipant is a read projection for the external collaborators
// (leaderboards, game-over screens); ties share a rank, matching
// Game.get_ranked_scores in the source this spec was distilled from.
type RankedParticipant struct {
	Seat       int
	PlayerName string
	Score      int
	Rank       int
}

// AuditEvent is an immutable, append-only log entry.
type AuditEvent struct {
	ID                string
	GameID            string
	ParticipantID     *string
	Action            string
	Payload           json.RawMessage
	CreatedAt         time.Time
	ServerTimestampUS int64
}

// Correctness is the tri-state outcome of a clue reveal.
type Correctness int

const (
	CorrectnessUnresolved Correctness = iota
	CorrectnessCorrect
	CorrectnessIncorrect
)

// ClueRevealRecord is written once per clue, when a reveal closes.
type ClueRevealRecord struct {
	GameID       string
	ClueID       int64
	RevealerSeat *int
	BuzzWinner   *int
	Correct      Correctness
	RevealedAt   time.Time
}
