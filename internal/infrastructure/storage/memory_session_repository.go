package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"surface-tracker/internal/domain/entity"
	"surface-tracker/internal/domain/port"
)

// MemorySessionRepository in-memory хранилище сессий трекинга.
// Сессии живут до перезапуска процесса; журнал их не восстанавливает.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]port.TrackingSession
}

// NewMemorySessionRepository создаёт пустое хранилище сессий
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]port.TrackingSession),
	}
}

// Get возвращает сессию по ID
func (r *MemorySessionRepository) Get(ctx context.Context, id string) (port.TrackingSession, error) {
	r.mu.RLock()
	sess, exists := r.sessions[id]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", entity.ErrSessionNotFound, id)
	}
	return sess, nil
}

// Save сохраняет сессию
func (r *MemorySessionRepository) Save(ctx context.Context, session port.TrackingSession) error {
	r.mu.Lock()
	r.sessions[session.ID()] = session
	r.mu.Unlock()

	return nil
}

// List возвращает все сессии по возрастанию ID
func (r *MemorySessionRepository) List(ctx context.Context) ([]port.TrackingSession, error) {
	r.mu.RLock()
	list := make([]port.TrackingSession, 0, len(r.sessions))
	for _, sess := range r.sessions {
		list = append(list, sess)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID() < list[j].ID() })
	return list, nil
}

// Проверка реализации интерфейса
var _ port.SessionRepository = (*MemorySessionRepository)(nil)
