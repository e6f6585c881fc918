package port

import (
	"context"

	"cropscout/internal/domain/entity"
)

// UserRepository хранилище сессий операторов бота
type UserRepository interface {
	// Get возвращает сессию оператора, создаёт новую если не найдена
	Get(ctx context.Context, userID, chatID int64) (*entity.User, error)

	// Save сохраняет сессию целиком (поле, ожидающую точку, состояние)
	Save(ctx context.Context, user *entity.User) error

	// UpdateState меняет только состояние диалога
	UpdateState(ctx context.Context, userID int64, state entity.UserState) error
}
