package durable

import (
	"encoding/json"
	"time"
)

// gameRow, participantRow, actionRow, and clueRevealRow are the
// GORM-mapped write-side tables, carrying the same fields as the
// Django source's Game, GameParticipant, GameAction, and ClueReveal
// models this spec was distilled from.
type gameRow struct {
	ID           string `gorm:"primaryKey;column:id"`
	GameID       string `gorm:"uniqueIndex;column:game_id"`
	EpisodeID    int64  `gorm:"column:episode_id"`
	HostID       string `gorm:"column:host_id"`
	Status       string `gorm:"column:status"`
	CurrentRound string `gorm:"column:current_round"`
	Settings     json.RawMessage `gorm:"column:settings;type:jsonb"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	StartedAt    *time.Time `gorm:"column:started_at"`
	EndedAt      *time.Time `gorm:"column:ended_at"`
}

func (gameRow) TableName() string { return "games" }

type participantRow struct {
	ID         int64  `gorm:"primaryKey;autoIncrement;column:id"`
	GameID     string `gorm:"column:game_id;uniqueIndex:idx_game_seat"`
	PlayerID   string `gorm:"column:player_id"`
	PlayerName string `gorm:"column:player_name"`
	Seat       int    `gorm:"column:player_number;uniqueIndex:idx_game_seat"`
	Score      int    `gorm:"column:score"`
	FinalWager *int   `gorm:"column:final_wager"`
	JoinedAt   time.Time `gorm:"column:joined_at"`
}

func (participantRow) TableName() string { return "game_participants" }

type actionRow struct {
	ID                string `gorm:"primaryKey;column:id"`
	GameID            string `gorm:"column:game_id;index"`
	ParticipantID     *string `gorm:"column:participant_id"`
	Action            string `gorm:"column:action"`
	Payload           json.RawMessage `gorm:"column:payload;type:jsonb"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	ServerTimestampUS int64     `gorm:"column:server_timestamp_us"`
}

func (actionRow) TableName() string { return "game_actions" }

type clueRevealRow struct {
	ID           int64  `gorm:"primaryKey;autoIncrement;column:id"`
	GameID       string `gorm:"column:game_id;index"`
	ClueID       int64  `gorm:"column:clue_id"`
	RevealerSeat *int   `gorm:"column:revealer_seat"`
	BuzzWinner   *int   `gorm:"column:buzz_winner"`
	Correct      *bool  `gorm:"column:correct"`
	RevealedAt   time.Time `gorm:"column:revealed_at"`
}

func (clueRevealRow) TableName() string { return "clue_reveals" }
