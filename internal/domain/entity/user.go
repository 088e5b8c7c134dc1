package entity

import "strconv"

// UserState состояние оператора в диалоге с ботом
type UserState string

const (
	StateMainMenu          UserState = "main_menu"          // В главном меню
	StateAwaitingReference UserState = "awaiting_reference" // Ожидание опорного кадра с областью
	StateTracking          UserState = "tracking"           // Кадры отслеживаются по опоре
)

// User оператор Telegram-бота
type User struct {
	ID     int64     // Telegram User ID
	ChatID int64     // Telegram Chat ID
	State  UserState // Текущее состояние диалога

	SessionID string // Сессия трекинга, закреплённая за чатом
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,

		SessionID: ChatSessionID(chatID),
	}
}

// SetState обновляет состояние пользователя
func (u *User) SetState(state UserState) {
	u.State = state
}

// ChatSessionID идентификатор сессии трекинга для чата Telegram
func ChatSessionID(chatID int64) string {
	return "tg-" + strconv.FormatInt(chatID, 10)
}
