package app

import (
	"context"
	"errors"

	"cropscout/internal/domain/entity"
)

// ErrNoFieldSelected оператор не выбрал поле
var ErrNoFieldSelected = errors.New("no field selected")

// ErrNoLocation оператор не отправил геопозицию
var ErrNoLocation = errors.New("no location shared")

// ScoutingService сценарий обхода поля из чата: выбор поля, геопозиция, фото
type ScoutingService struct {
	users  *UserService
	fields *FieldService
	spots  *SpotService
}

// NewScoutingService создаёт сервис, который ведёт оператора по сценарию
func NewScoutingService(users *UserService, fields *FieldService, spots *SpotService) *ScoutingService {
	return &ScoutingService{users: users, fields: fields, spots: spots}
}

// ChooseField проверяет, что поле существует, и ждёт геопозицию
func (s *ScoutingService) ChooseField(ctx context.Context, userID, chatID int64, fieldID string) (*entity.Field, error) {
	f, err := s.fields.GetField(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.SelectField(ctx, userID, chatID, f.ID); err != nil {
		return nil, err
	}
	return f, nil
}

// AcceptLocation запоминает точку и ждёт фото
func (s *ScoutingService) AcceptLocation(ctx context.Context, userID, chatID int64, p entity.Point) (*entity.User, error) {
	user, err := s.users.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if user.FieldID == "" {
		return nil, ErrNoFieldSelected
	}
	return s.users.SetLocation(ctx, userID, chatID, p)
}

// AcceptPhoto создаёт точку по сохранённой геопозиции. После ответа оператор
// снова ждёт геопозицию на том же поле.
func (s *ScoutingService) AcceptPhoto(ctx context.Context, userID, chatID int64, photo []byte, filename string) (*entity.Spot, *entity.AnalysisResult, error) {
	user, err := s.users.Get(ctx, userID, chatID)
	if err != nil {
		return nil, nil, err
	}
	if user.FieldID == "" {
		return nil, nil, ErrNoFieldSelected
	}
	if user.Pending == nil {
		return nil, nil, ErrNoLocation
	}
	point := *user.Pending

	if _, err := s.users.SetState(ctx, userID, chatID, entity.StateProcessing); err != nil {
		return nil, nil, err
	}
	spot, analysis, err := s.spots.CreateSpot(ctx, CreateSpotInput{
		FieldID:   user.FieldID,
		Latitude:  point.Lat,
		Longitude: point.Lng,
		Image:     photo,
		ImageName: filename,
		Device:    "telegram",
	})
	// при ошибке оператор может переснять кадр в той же точке
	if err != nil {
		_, _ = s.users.SetLocation(ctx, userID, chatID, point)
		return nil, nil, err
	}
	if _, err := s.users.SelectField(ctx, userID, chatID, user.FieldID); err != nil {
		return nil, nil, err
	}
	return spot, analysis, nil
}

// Summary сводка по выбранному полю
func (s *ScoutingService) Summary(ctx context.Context, userID, chatID int64) (*entity.Field, *entity.Summary, error) {
	user, err := s.users.Get(ctx, userID, chatID)
	if err != nil {
		return nil, nil, err
	}
	if user.FieldID == "" {
		return nil, nil, ErrNoFieldSelected
	}
	f, err := s.fields.GetField(ctx, user.FieldID)
	if err != nil {
		return nil, nil, err
	}
	return f, Summarize(f), nil
}

// Fields список полей
func (s *ScoutingService) Fields(ctx context.Context) ([]entity.Field, error) {
	return s.fields.ListFields(ctx)
}

// Cancel возвращает оператора в главное меню
func (s *ScoutingService) Cancel(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.users.Cancel(ctx, userID, chatID)
}
