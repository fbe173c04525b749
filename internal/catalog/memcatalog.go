package catalog

import (
	"context"
	"fmt"

	"github.com/briarpatch/jeopardy-coordinator/internal/model"
)

// MemCatalog is a fixed in-memory Catalog used by the round engine's
// tests, avoiding a throwaway sqlite database for scenarios that only
// need a handful of fixed clues.
type MemCatalog struct {
	episodes map[int64]*model.Episode
}

func NewMemCatalog(episodes ...*model.Episode) *MemCatalog {
	m := &MemCatalog{episodes: make(map[int64]*model.Episode)}
	for _, ep := range episodes {
		m.episodes[ep.ID] = ep
	}
	return m
}

func (m *MemCatalog) Episode(_ context.Context, episodeID int64) (*model.Episode, error) {
	ep, ok := m.episodes[episodeID]
	if !ok {
		return nil, fmt.Errorf("catalog: episode %d not found", episodeID)
	}
	return ep, nil
}

func (m *MemCatalog) Clue(_ context.Context, episodeID int64, clueID int64) (*model.Clue, error) {
	ep, ok := m.episodes[episodeID]
	if !ok {
		return nil, fmt.Errorf("catalog: episode %d not found", episodeID)
	}
	for _, cat := range append(append([]model.Category{}, ep.SingleRound...), ep.DoubleRound...) {
		for i := range cat.Clues {
			if cat.Clues[i].ID == clueID {
				c := cat.Clues[i]
				return &c, nil
			}
		}
	}
	if ep.FinalCategory != nil {
		for i := range ep.FinalCategory.Clues {
			if ep.FinalCategory.Clues[i].ID == clueID {
				c := ep.FinalCategory.Clues[i]
				return &c, nil
			}
		}
	}
	return nil, ErrClueNotInEpisode
}

func (m *MemCatalog) FinalCategory(_ context.Context, episodeID int64) (*model.Category, *model.Clue, error) {
	ep, ok := m.episodes[episodeID]
	if !ok || ep.FinalCategory == nil || len(ep.FinalCategory.Clues) == 0 {
		return nil, nil, fmt.Errorf("catalog: no final category for episode %d", episodeID)
	}
	return ep.FinalCategory, &ep.FinalCategory.Clues[0], nil
}
