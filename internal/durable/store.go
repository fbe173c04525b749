// Package durable is the system of record for scores and audit
// history: every score change and judged answer lands here even
// though the live game is driven out of internal/ephemeral, so a
// crashed Redis never loses a completed game's final standings.
package durable

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/briarpatch/jeopardy-coordinator/internal/model"
)

var ErrGameNotFound = errors.New("durable: game not found")

// Store is the durable persistence surface the round engine and the
// score/audit writer use. Every method is safe to call concurrently;
// GORM's *gorm.DB pools its own connections the same way the
// production ephemeral.RedisStore pools redigo connections.
type Store interface {
	GetGame(ctx context.Context, gameID string) (*model.Game, error)
	CreateGame(ctx context.Context, game model.Game) error
	Participants(ctx context.Context, gameID string) ([]model.Participant, error)
	AddParticipant(ctx context.Context, p model.Participant) error
	SetParticipantScore(ctx context.Context, gameID string, seat int, score int) error
	RecordClueReveal(ctx context.Context, rec model.ClueRevealRecord) error
	AppendAudit(ctx context.Context, ev model.AuditEvent) error
	SetGameStatus(ctx context.Context, gameID string, status model.GameStatus, endedAt *time.Time) error
	RankedScores(ctx context.Context, gameID string) ([]model.RankedParticipant, error)
}

// GormStore is the production Store. It is driven by postgres in
// normal operation and sqlite in tests (same interface, same queries,
// swapped only at the gorm.Open call site in cmd/coordinator and in
// _test.go files).
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates/updates the four durable tables. Called once at
// startup; production schema changes are expected to go through a
// real migration tool, but AutoMigrate keeps local/test runs trivial,
// matching how the pack's smaller GORM-backed services bootstrap.
func (s *GormStore) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&gameRow{}, &participantRow{}, &actionRow{}, &clueRevealRow{})
}

func (s *GormStore) GetGame(ctx context.Context, gameID string) (*model.Game, error) {
	var row gameRow
	err := s.db.WithContext(ctx).First(&row, "game_id = ?", gameID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("durable: get game %s: %w", gameID, err)
	}
	g := toDomainGame(row)
	return &g, nil
}

func (s *GormStore) CreateGame(ctx context.Context, game model.Game) error {
	row := gameRow{
		ID:           game.ID,
		GameID:       game.ID,
		EpisodeID:    game.EpisodeID,
		HostID:       game.HostID,
		Status:       string(game.Status),
		CurrentRound: string(game.CurrentRound),
		Settings:     game.Settings,
		CreatedAt:    game.CreatedAt,
		StartedAt:    game.StartedAt,
		EndedAt:      game.EndedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("durable: create game %s: %w", game.ID, err)
	}
	return nil
}

func (s *GormStore) Participants(ctx context.Context, gameID string) ([]model.Participant, error) {
	var rows []participantRow
	if err := s.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("player_number").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("durable: list participants for %s: %w", gameID, err)
	}
	out := make([]model.Participant, 0, len(rows))
	for _, r := range rows {
		out = append(out, toDomainParticipant(r))
	}
	return out, nil
}

func (s *GormStore) AddParticipant(ctx context.Context, p model.Participant) error {
	row := participantRow{
		GameID:     p.GameID,
		PlayerID:   p.PlayerID,
		PlayerName: p.PlayerName,
		Seat:       p.Seat,
		Score:      p.Score,
		FinalWager: p.FinalWager,
		JoinedAt:   p.JoinedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("durable: add participant seat %d to %s: %w", p.Seat, p.GameID, err)
	}
	return nil
}

func (s *GormStore) SetParticipantScore(ctx context.Context, gameID string, seat int, score int) error {
	res := s.db.WithContext(ctx).
		Model(&participantRow{}).
		Where("game_id = ? AND player_number = ?", gameID, seat).
		Update("score", score)
	if res.Error != nil {
		return fmt.Errorf("durable: set score for %s seat %d: %w", gameID, seat, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("durable: no participant at seat %d in game %s", seat, gameID)
	}
	return nil
}

func (s *GormStore) RecordClueReveal(ctx context.Context, rec model.ClueRevealRecord) error {
	row := clueRevealRow{
		GameID:       rec.GameID,
		ClueID:       rec.ClueID,
		RevealerSeat: rec.RevealerSeat,
		BuzzWinner:   rec.BuzzWinner,
		Correct:      correctnessToNullableBool(rec.Correct),
		RevealedAt:   rec.RevealedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("durable: record clue reveal for clue %d in %s: %w", rec.ClueID, rec.GameID, err)
	}
	return nil
}

func (s *GormStore) AppendAudit(ctx context.Context, ev model.AuditEvent) error {
	row := actionRow{
		ID:                ev.ID,
		GameID:            ev.GameID,
		ParticipantID:     ev.ParticipantID,
		Action:            ev.Action,
		Payload:           ev.Payload,
		CreatedAt:         ev.CreatedAt,
		ServerTimestampUS: ev.ServerTimestampUS,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("durable: append audit event %s for %s: %w", ev.Action, ev.GameID, err)
	}
	return nil
}

func (s *GormStore) SetGameStatus(ctx context.Context, gameID string, status model.GameStatus, endedAt *time.Time) error {
	updates := map[string]interface{}{"status": string(status)}
	if endedAt != nil {
		updates["ended_at"] = *endedAt
	}
	res := s.db.WithContext(ctx).Model(&gameRow{}).Where("game_id = ?", gameID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("durable: set status for %s: %w", gameID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrGameNotFound
	}
	return nil
}

// RankedScores implements the same tie-sharing rank the source this
// spec was distilled from computes (Game.get_ranked_scores): sort
// descending by score, and seats with an equal score share a rank
// rather than advancing past each other.
func (s *GormStore) RankedScores(ctx context.Context, gameID string) ([]model.RankedParticipant, error) {
	participants, err := s.Participants(ctx, gameID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(participants, func(i, j int) bool {
		return participants[i].Score > participants[j].Score
	})

	out := make([]model.RankedParticipant, len(participants))
	rank := 0
	prevScore := 0
	for i, p := range participants {
		if i == 0 || p.Score != prevScore {
			rank = i + 1
		}
		out[i] = model.RankedParticipant{
			Seat:       p.Seat,
			PlayerName: p.PlayerName,
			Score:      p.Score,
			Rank:       rank,
		}
		prevScore = p.Score
	}
	return out, nil
}

func toDomainGame(row gameRow) model.Game {
	return model.Game{
		ID:           row.GameID,
		EpisodeID:    row.EpisodeID,
		HostID:       row.HostID,
		Status:       model.GameStatus(row.Status),
		CurrentRound: model.RoundType(row.CurrentRound),
		Settings:     row.Settings,
		CreatedAt:    row.CreatedAt,
		StartedAt:    row.StartedAt,
		EndedAt:      row.EndedAt,
	}
}

func toDomainParticipant(row participantRow) model.Participant {
	return model.Participant{
		GameID:     row.GameID,
		PlayerID:   row.PlayerID,
		PlayerName: row.PlayerName,
		Seat:       row.Seat,
		Score:      row.Score,
		FinalWager: row.FinalWager,
		JoinedAt:   row.JoinedAt,
	}
}

func correctnessToNullableBool(c model.Correctness) *bool {
	switch c {
	case model.CorrectnessCorrect:
		v := true
		return &v
	case model.CorrectnessIncorrect:
		v := false
		return &v
	default:
		return nil
	}
}
