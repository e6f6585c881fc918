package storage

import (
	"context"
	"sync"

	"cropscout/internal/domain/entity"
	"cropscout/internal/domain/port"
)

// MemoryUserRepository in-memory хранилище сессий операторов.
// Наружу отдаются копии, чтобы обработчики разных обновлений не делили состояние.
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

// Get возвращает сессию по ID, создаёт новую если не найдена
func (r *MemoryUserRepository) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	r.mu.RLock()
	user, exists := r.users[userID]
	r.mu.RUnlock()
	if exists {
		return clone(user), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if user, exists = r.users[userID]; !exists {
		user = *entity.NewUser(userID, chatID)
		r.users[userID] = user
	}
	return clone(user), nil
}

// Save сохраняет сессию целиком
func (r *MemoryUserRepository) Save(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	r.users[user.ID] = *clone(*user)
	r.mu.Unlock()
	return nil
}

// UpdateState обновляет только состояние диалога
func (r *MemoryUserRepository) UpdateState(ctx context.Context, userID int64, state entity.UserState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, exists := r.users[userID]; exists {
		user.SetState(state)
		r.users[userID] = user
	}
	return nil
}

func clone(u entity.User) *entity.User {
	if u.Pending != nil {
		p := *u.Pending
		u.Pending = &p
	}
	return &u
}

// Проверка реализации интерфейса
var _ port.UserRepository = (*MemoryUserRepository)(nil)
