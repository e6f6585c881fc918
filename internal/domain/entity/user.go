package entity

// UserState состояние оператора в диалоге с ботом
type UserState string

const (
	StateMainMenu         UserState = "main_menu"         // В главном меню
	StateAwaitingLocation UserState = "awaiting_location" // Ожидание геопозиции точки
	StateAwaitingPhoto    UserState = "awaiting_photo"    // Ожидание фото растения
	StateProcessing       UserState = "processing"        // Анализ снимка
)

// User оператор, работающий с ботом
type User struct {
	ID     int64     // Telegram User ID
	ChatID int64     // Telegram Chat ID
	State  UserState // Текущее состояние пользователя

	FieldID string // Выбранное поле
	Pending *Point // Геопозиция, ожидающая фото
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,
	}
}

// SetState обновляет состояние пользователя
func (u *User) SetState(state UserState) {
	u.State = state
}

// SelectField выбирает поле и сбрасывает ожидающую точку
func (u *User) SelectField(fieldID string) {
	u.FieldID = fieldID
	u.Pending = nil
	u.State = StateAwaitingLocation
}

// SetLocation запоминает геопозицию и переводит в ожидание фото
func (u *User) SetLocation(p Point) {
	u.Pending = &p
	u.State = StateAwaitingPhoto
}

// Reset возвращает пользователя в главное меню, поле остаётся выбранным
func (u *User) Reset() {
	u.Pending = nil
	u.State = StateMainMenu
}
