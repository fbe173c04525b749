package model

import "time"

// BuzzerState is the shared, contended state the Buzzer Arbitrator
// serializes access to. Field names mirror engine.py's buzzer hash.
type BuzzerState struct {
	Locked      bool
	UnlockToken string
	Count       int
	Winner      int // 0 means unset
	PlayerTimes map[int]int64
	Order       []int
}

// DDStage is the Daily Double micro-state.
type DDStage string

const (
	DDDetected  DDStage = "detected"
	DDRevealed  DDStage = "revealed"
	DDWagering  DDStage = "wagering"
	DDAnswering DDStage = "answering"
	DDJudged    DDStage = "judged"
)

// DDState tracks one Daily Double's progress.
type DDState struct {
	Stage        DDStage
	PlayerNumber int
	Wager        int
	Answer       string
}

// FJStage is the Final Jeopardy micro-state.
type FJStage string

const (
	FJCategoryShown FJStage = "category_shown"
	FJClueRevealed  FJStage = "clue_revealed"
	FJTimerRunning  FJStage = "timer_running"
)

// FJState tracks the Final Jeopardy round's per-seat sub-state.
type FJState struct {
	Stage    FJStage
	ClueID   int64
	Category string
	Wagers   map[int]int
	Answers  map[int]string
	Judged   map[int]bool
}

// LiveState is the ephemeral, per-game authoritative state. It is the
// single source of truth for everything that changes faster than the
// durable store should be written to.
type LiveState struct {
	EpisodeID     int64
	Status        GameStatus
	CurrentRound  RoundType
	CurrentClue   int64 // 0 means unset
	CurrentPlayer int   // 0 means unset

	RevealedClues map[int64]struct{}
	DailyDoubles  map[int64]struct{}

	Buzzer           BuzzerState
	AttemptedPlayers map[int]struct{}
	Cooldowns        map[int]time.Time

	DD DDState
	FJ FJState
}

// IsDailyDouble reports whether clueID is this session's (not the
// catalog's) Daily Double placement.
func (s *LiveState) IsDailyDouble(clueID int64) bool {
	_, ok := s.DailyDoubles[clueID]
	return ok
}

// NewLiveState builds a zeroed live state for a freshly materialized
// game, with every seat's score implicitly zero (scores live in a
// separate ephemeral hash, see ephemeral.ScoresKey).
func NewLiveState(episodeID int64, dailyDoubles []int64) *LiveState {
	dd := make(map[int64]struct{}, len(dailyDoubles))
	for _, id := range dailyDoubles {
		dd[id] = struct{}{}
	}
	return &LiveState{
		EpisodeID:        episodeID,
		Status:           StatusActive,
		CurrentRound:     RoundSingle,
		RevealedClues:    make(map[int64]struct{}),
		DailyDoubles:     dd,
		AttemptedPlayers: make(map[int]struct{}),
		Cooldowns:        make(map[int]time.Time),
	}
}
