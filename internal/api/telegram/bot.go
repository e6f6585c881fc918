package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "cropscout/internal/application"
	"cropscout/internal/domain/entity"
)

const (
	msgStart = `👋 Привет! Я помогаю обходить поля и проверять состояние растений.

📋 Команды:
/fields — список полей
/field <id> — выбрать поле
/summary — сводка по выбранному полю
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Выберите поле: /fields, затем /field <id>
2️⃣ Встаньте у растения и отправьте геопозицию
3️⃣ Отправьте фото листа
4️⃣ Бот сохранит точку и пришлёт результат анализа

💡 Рекомендации:
• Снимайте при дневном свете, без вспышки
• Лист должен занимать большую часть кадра
• Фото должно быть чётким

/summary — сводка по полю`

	msgChooseField     = "🗺 Сначала выберите поле: /fields, затем /field <id>."
	msgFieldUsage      = "Укажите поле: /field <id>. Список полей: /fields"
	msgNoFields        = "Полей пока нет. Создайте поле через веб-интерфейс."
	msgSendLocation    = "📍 Отправьте геопозицию точки наблюдения."
	msgSendPhoto       = "📸 Отправьте фото растения в этой точке."
	msgCancelled       = "❌ Операция отменена. Поле остаётся выбранным, /summary — сводка."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Анализирую снимок..."
	msgProcessingError = "⚠️ Не удалось обработать снимок. Попробуйте ещё раз."
	msgFieldNotFound   = "Поле не найдено. Список полей: /fields"
)

// botAPI часть tgbotapi.BotAPI, которой пользуется бот
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot представляет Telegram-бота для обхода полей
type Bot struct {
	api      botAPI
	scouting *app.ScoutingService
	client   *http.Client
	log      *slog.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, scouting *app.ScoutingService, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Info("telegram bot authorized", "account", api.Self.UserName)

	return newBot(api, scouting, http.DefaultClient, log), nil
}

func newBot(api botAPI, scouting *app.ScoutingService, client *http.Client, log *slog.Logger) *Bot {
	return &Bot{api: api, scouting: scouting, client: client, log: log}
}

// Run обрабатывает сообщения до отмены контекста
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case msg.Location != nil:
		b.handleLocation(ctx, msg)
	case len(msg.Photo) > 0:
		b.handlePhoto(ctx, msg)
	default:
		b.sendMessage(msg.Chat.ID, msgHelp)
	}
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID

	switch msg.Command() {
	case "start":
		if _, err := b.scouting.Cancel(ctx, userID, chatID); err != nil {
			b.log.Error("failed to reset session", "user_id", userID, "error", err)
		}
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "fields":
		fields, err := b.scouting.Fields(ctx)
		if err != nil {
			b.log.Error("failed to list fields", "error", err)
			b.sendMessage(chatID, msgProcessingError)
			return
		}
		b.sendMessage(chatID, formatFields(fields))

	case "field":
		id := strings.TrimSpace(msg.CommandArguments())
		if id == "" {
			b.sendMessage(chatID, msgFieldUsage)
			return
		}
		f, err := b.scouting.ChooseField(ctx, userID, chatID, id)
		if err != nil {
			b.sendMessage(chatID, b.errorText(err))
			return
		}
		b.sendMessage(chatID, fmt.Sprintf("✅ Поле «%s» (%s) выбрано.\n%s", f.Name, f.CropType, msgSendLocation))

	case "summary":
		f, s, err := b.scouting.Summary(ctx, userID, chatID)
		if err != nil {
			b.sendMessage(chatID, b.errorText(err))
			return
		}
		b.sendMessage(chatID, formatSummary(f, s))

	case "cancel":
		if _, err := b.scouting.Cancel(ctx, userID, chatID); err != nil {
			b.log.Error("failed to reset session", "user_id", userID, "error", err)
		}
		b.sendMessage(chatID, msgCancelled)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

// handleLocation запоминает точку наблюдения
func (b *Bot) handleLocation(ctx context.Context, msg *tgbotapi.Message) {
	p := entity.Point{Lat: msg.Location.Latitude, Lng: msg.Location.Longitude}
	if _, err := b.scouting.AcceptLocation(ctx, msg.From.ID, msg.Chat.ID, p); err != nil {
		b.sendMessage(msg.Chat.ID, b.errorText(err))
		return
	}
	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handlePhoto создаёт точку по фото и присланной ранее геопозиции
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	b.sendMessage(msg.Chat.ID, msgProcessing)

	// Получаем файл с максимальным разрешением
	photo := msg.Photo[len(msg.Photo)-1]

	imageData, err := b.downloadFile(ctx, photo.FileID)
	if err != nil {
		b.log.Error("failed to download photo", "user_id", msg.From.ID, "error", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	_, analysis, err := b.scouting.AcceptPhoto(ctx, msg.From.ID, msg.Chat.ID, imageData, photo.FileUniqueID+".jpg")
	if err != nil {
		b.sendMessage(msg.Chat.ID, b.errorText(err))
		return
	}
	b.sendMessage(msg.Chat.ID, formatAnalysis(analysis)+"\n\n"+msgSendLocation)
}

// errorText сообщение оператору по ошибке сценария
func (b *Bot) errorText(err error) string {
	switch {
	case errors.Is(err, app.ErrNoFieldSelected):
		return msgChooseField
	case errors.Is(err, app.ErrNoLocation):
		return msgSendLocation
	}

	switch entity.CodeOf(err) {
	case entity.CodeFieldNotFound:
		return msgFieldNotFound
	case entity.CodeGeofenceViolation:
		return "🚫 Точка за границей поля. Отправьте геопозицию внутри поля."
	case entity.CodeInvalidCoordinates:
		return "🚫 Некорректная геопозиция. Отправьте её ещё раз."
	case entity.CodeFieldBusy:
		return "⏳ Поле сейчас удаляется, попробуйте позже."
	case entity.CodeNoModelsAvailable:
		return "⚠️ Модели анализа недоступны. Попробуйте позже."
	}
	b.log.Error("scouting request failed", "error", err)
	return msgProcessingError
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}
