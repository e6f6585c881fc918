package app

import (
	"context"

	"cropscout/internal/domain/entity"
	"cropscout/internal/domain/port"
)

// UserService сессии операторов бота
type UserService struct {
	repo port.UserRepository
}

func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Get(ctx, userID, chatID)
}

// update читает сессию, применяет изменение и сохраняет
func (s *UserService) update(ctx context.Context, userID, chatID int64, fn func(*entity.User)) (*entity.User, error) {
	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	fn(user)
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *UserService) SetState(ctx context.Context, userID, chatID int64, state entity.UserState) (*entity.User, error) {
	return s.update(ctx, userID, chatID, func(u *entity.User) { u.SetState(state) })
}

func (s *UserService) SelectField(ctx context.Context, userID, chatID int64, fieldID string) (*entity.User, error) {
	return s.update(ctx, userID, chatID, func(u *entity.User) { u.SelectField(fieldID) })
}

func (s *UserService) SetLocation(ctx context.Context, userID, chatID int64, p entity.Point) (*entity.User, error) {
	return s.update(ctx, userID, chatID, func(u *entity.User) { u.SetLocation(p) })
}

func (s *UserService) Cancel(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.update(ctx, userID, chatID, func(u *entity.User) { u.Reset() })
}
