// Package catalog serves the read-only episode/category/clue board
// data populated by the out-of-scope CSV ingest pipeline. It never
// writes; every mutation of game state lives in internal/durable and
// internal/ephemeral instead.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/briarpatch/jeopardy-coordinator/internal/model"
)

// ErrClueNotInEpisode backs spec.md's boundary behavior: a clue reveal
// naming a clue id that does not belong to the given episode is
// rejected with an error, not silently coerced.
var ErrClueNotInEpisode = errors.New("catalog: clue does not belong to episode")

// Catalog is the read-only board surface the round engine queries
// against when revealing clues and setting up Final Jeopardy.
type Catalog interface {
	Episode(ctx context.Context, episodeID int64) (*model.Episode, error)
	Clue(ctx context.Context, episodeID int64, clueID int64) (*model.Clue, error)
	FinalCategory(ctx context.Context, episodeID int64) (*model.Category, *model.Clue, error)
}

// episodeRow, categoryRow, and clueRow are the GORM-mapped read
// shapes for the catalog tables. These are deliberately separate from
// internal/durable's write-side models: the catalog is populated by
// an external ingest job and the coordinator never migrates or writes
// these tables, so there is no shared GORM model between the two
// packages.
type episodeRow struct {
	ID            int64 `gorm:"primaryKey;column:id"`
	SeasonNumber  int   `gorm:"column:season_number"`
	EpisodeNumber int   `gorm:"column:episode_number"`
}

func (episodeRow) TableName() string { return "episodes" }

type categoryRow struct {
	ID        int64  `gorm:"primaryKey;column:id"`
	EpisodeID int64  `gorm:"column:episode_id"`
	Name      string `gorm:"column:name"`
	Round     string `gorm:"column:round"`
	Position  int    `gorm:"column:position"`
}

func (categoryRow) TableName() string { return "categories" }

type clueRow struct {
	ID            int64  `gorm:"primaryKey;column:id"`
	CategoryID    int64  `gorm:"column:category_id"`
	Question      string `gorm:"column:question"`
	Answer        string `gorm:"column:answer"`
	Value         int    `gorm:"column:value"`
	Position      int    `gorm:"column:position"`
	IsDailyDouble bool   `gorm:"column:is_daily_double"`
}

func (clueRow) TableName() string { return "clues" }

// GormCatalog is the production Catalog, grounded on the gorm.io/gorm
// query shapes used for read models throughout the pack's GORM-backed
// examples.
type GormCatalog struct {
	db *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

func (c *GormCatalog) Episode(ctx context.Context, episodeID int64) (*model.Episode, error) {
	var ep episodeRow
	if err := c.db.WithContext(ctx).First(&ep, "id = ?", episodeID).Error; err != nil {
		return nil, fmt.Errorf("catalog: load episode %d: %w", episodeID, err)
	}

	var categories []categoryRow
	if err := c.db.WithContext(ctx).
		Where("episode_id = ?", episodeID).
		Order("position").
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("catalog: load categories for episode %d: %w", episodeID, err)
	}

	out := &model.Episode{
		ID:            ep.ID,
		SeasonNumber:  ep.SeasonNumber,
		EpisodeNumber: ep.EpisodeNumber,
	}

	for _, cat := range categories {
		domainCat, err := c.loadCategory(ctx, cat)
		if err != nil {
			return nil, err
		}
		switch model.RoundType(cat.Round) {
		case model.RoundSingle:
			out.SingleRound = append(out.SingleRound, *domainCat)
		case model.RoundDouble:
			out.DoubleRound = append(out.DoubleRound, *domainCat)
		case model.RoundFinal:
			out.FinalCategory = domainCat
		}
	}

	return out, nil
}

func (c *GormCatalog) Clue(ctx context.Context, episodeID int64, clueID int64) (*model.Clue, error) {
	var row clueRow
	if err := c.db.WithContext(ctx).First(&row, "id = ?", clueID).Error; err != nil {
		return nil, fmt.Errorf("catalog: load clue %d: %w", clueID, err)
	}

	var cat categoryRow
	if err := c.db.WithContext(ctx).First(&cat, "id = ?", row.CategoryID).Error; err != nil {
		return nil, fmt.Errorf("catalog: load category for clue %d: %w", clueID, err)
	}
	if cat.EpisodeID != episodeID {
		return nil, ErrClueNotInEpisode
	}

	clue := toDomainClue(row)
	return &clue, nil
}

func (c *GormCatalog) FinalCategory(ctx context.Context, episodeID int64) (*model.Category, *model.Clue, error) {
	var cat categoryRow
	if err := c.db.WithContext(ctx).
		Where("episode_id = ? AND round = ?", episodeID, string(model.RoundFinal)).
		First(&cat).Error; err != nil {
		return nil, nil, fmt.Errorf("catalog: load final category for episode %d: %w", episodeID, err)
	}

	domainCat, err := c.loadCategory(ctx, cat)
	if err != nil {
		return nil, nil, err
	}
	if len(domainCat.Clues) == 0 {
		return nil, nil, fmt.Errorf("catalog: final category %d has no clue", cat.ID)
	}
	return domainCat, &domainCat.Clues[0], nil
}

func (c *GormCatalog) loadCategory(ctx context.Context, cat categoryRow) (*model.Category, error) {
	var clues []clueRow
	if err := c.db.WithContext(ctx).
		Where("category_id = ?", cat.ID).
		Order("position").
		Find(&clues).Error; err != nil {
		return nil, fmt.Errorf("catalog: load clues for category %d: %w", cat.ID, err)
	}

	out := &model.Category{
		ID:        cat.ID,
		EpisodeID: cat.EpisodeID,
		Name:      cat.Name,
		Round:     model.RoundType(cat.Round),
		Position:  cat.Position,
	}
	for _, row := range clues {
		out.Clues = append(out.Clues, toDomainClue(row))
	}
	return out, nil
}

func toDomainClue(row clueRow) model.Clue {
	return model.Clue{
		ID:            row.ID,
		CategoryID:    row.CategoryID,
		Question:      row.Question,
		Answer:        row.Answer,
		Value:         row.Value,
		Position:      row.Position,
		IsDailyDouble: row.IsDailyDouble,
	}
}
