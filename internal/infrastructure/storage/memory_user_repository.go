package storage

import (
	"context"
	"sync"

	"surface-tracker/internal/domain/entity"
	"surface-tracker/internal/domain/port"
)

// MemoryUserRepository in-memory хранилище операторов бота.
// Наружу отдаются копии, поэтому обработчики разных апдейтов не делят одну структуру.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[int64]entity.User
}

// NewMemoryUserRepository создаёт новое in-memory хранилище
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[int64]entity.User),
	}
}

// Get возвращает оператора по ID, создаёт нового если не найден
func (r *MemoryUserRepository) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	r.mu.RLock()
	user, exists := r.users[userID]
	r.mu.RUnlock()
	if exists {
		return &user, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// мог появиться, пока ждали блокировку
	if user, exists = r.users[userID]; exists {
		return &user, nil
	}
	user = *entity.NewUser(userID, chatID)
	r.users[userID] = user

	return &user, nil
}

// Save сохраняет состояние оператора
func (r *MemoryUserRepository) Save(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	r.users[user.ID] = *user
	r.mu.Unlock()

	return nil
}

// UpdateState обновляет состояние оператора
func (r *MemoryUserRepository) UpdateState(ctx context.Context, userID int64, state entity.UserState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, exists := r.users[userID]; exists {
		user.SetState(state)
		r.users[userID] = user
	}

	return nil
}

// Count число известных операторов
func (r *MemoryUserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Проверка реализации интерфейса
var _ port.UserRepository = (*MemoryUserRepository)(nil)
