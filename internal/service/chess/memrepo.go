package chess

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/park285/cheese-api/internal/domain"
)

// memrepo keeps the archive in memory for deployments without a database.
// Matches the Postgres upsert: one row per session, newest finish wins.
type memrepo struct {
	mu sync.RWMutex

	nextID      int64
	byID        map[int64]*domain.FinishedGame
	bySessionID map[string]int64
}

func NewMemoryRepository() Repository {
	return &memrepo{
		byID:        make(map[int64]*domain.FinishedGame),
		bySessionID: make(map[string]int64),
	}
}

func (m *memrepo) InsertGame(ctx context.Context, game *domain.FinishedGame) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil chess game payload")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, exists := m.bySessionID[game.SessionID]
	if !exists {
		m.nextID++
		id = m.nextID
		m.bySessionID[game.SessionID] = id
	}

	stored := *game
	stored.ID = id
	stored.MovesUCI = append([]string(nil), game.MovesUCI...)
	stored.MovesSAN = append([]string(nil), game.MovesSAN...)
	m.byID[id] = &stored

	return id, nil
}

func (m *memrepo) RecentGames(ctx context.Context, limit int) ([]*domain.FinishedGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]*domain.FinishedGame, 0, len(m.byID))
	for _, g := range m.byID {
		copied := *g
		items = append(items, &copied)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) GameByID(ctx context.Context, id int64) (*domain.FinishedGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	copied := *g
	return &copied, nil
}
