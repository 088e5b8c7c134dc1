package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "surface-tracker/internal/application"
	"surface-tracker/internal/container"
	"surface-tracker/internal/domain/entity"
	"surface-tracker/internal/domain/port"
)

const (
	msgStart = `👋 Привет! Я отслеживаю плоский участок сцены между кадрами.

📸 Пришлите опорный кадр с выделенной областью, затем новые кадры, и я покажу, куда сместилась область.

📋 Команды:
/track — задать опорный кадр
/status — состояние трекинга
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте /track
2️⃣ Пришлите фото с подписью — вершинами области в долях кадра, начало в левом верхнем углу:
   0.1,0.1 0.9,0.1 0.9,0.9 0.1,0.9
   Без подписи отслеживается весь кадр.
3️⃣ Присылайте новые кадры: в ответ придёт гомография и фото с контуром области

💡 Рекомендации:
• Выбирайте текстурированную плоскую поверхность
• Избегайте бликов и смаза`

	msgAwaitingReference = "📸 Пришлите опорный кадр. В подписи укажите вершины области: x,y x,y x,y ..."
	msgCancelled         = "❌ Операция отменена. Отправьте /track, чтобы задать новый опорный кадр."
	msgSendPhoto         = "📸 Пожалуйста, пришлите фото."
	msgNeedReference     = "Сначала задайте опорный кадр командой /track."
	msgUnknownCommand    = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessingError   = "⚠️ Не удалось обработать изображение. Попробуйте другое фото."
	msgBadCaption        = "⚠️ Не удалось разобрать область: %v\nФормат: 0.1,0.1 0.9,0.1 0.9,0.9"
)

// botAPI часть tgbotapi.BotAPI, которой пользуется бот.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot представляет Telegram-бота оператора
type Bot struct {
	api      botAPI
	users    *app.UserService
	tracking *app.TrackingService
	codec    port.ImageCodec
	log      *slog.Logger

	updates func(ctx context.Context) tgbotapi.UpdatesChannel
	fetch   func(ctx context.Context, url string) ([]byte, error)
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	log.Info("telegram authorized", "account", api.Self.UserName)

	b := newBot(api, c, log)
	b.updates = func(ctx context.Context) tgbotapi.UpdatesChannel {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		ch := api.GetUpdatesChan(u)
		go func() {
			<-ctx.Done()
			api.StopReceivingUpdates()
		}()
		return ch
	}
	return b, nil
}

func newBot(api botAPI, c *container.Container, log *slog.Logger) *Bot {
	return &Bot{
		api:      api,
		users:    c.UserService,
		tracking: c.TrackingService,
		codec:    c.Codec,
		log:      log,
		fetch:    downloadURL,
	}
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	updates := b.updates(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	user, err := b.users.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.log.Error("get user failed", "user", msg.From.ID, "err", err)
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	// Обработка фото
	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg, user)
		return
	}

	// Текстовое сообщение (не команда)
	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	switch msg.Command() {
	case "start":
		b.transition(ctx, user, b.users.Cancel)
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "track":
		b.transition(ctx, user, b.users.BeginTracking)
		b.sendMessage(msg.Chat.ID, msgAwaitingReference)

	case "status":
		info, err := b.tracking.Info(ctx, user.SessionID)
		if err != nil {
			b.sendMessage(msg.Chat.ID, msgNeedReference)
			return
		}
		b.sendMessage(msg.Chat.ID, formatInfo(info))

	case "cancel":
		b.transition(ctx, user, b.users.Cancel)
		b.sendMessage(msg.Chat.ID, msgCancelled)

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

// handlePhoto обрабатывает входящее фото в зависимости от состояния диалога
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	switch user.State {
	case entity.StateAwaitingReference:
		b.handleReference(ctx, msg, user)
	case entity.StateTracking:
		b.handleFrame(ctx, msg, user)
	default:
		b.sendMessage(msg.Chat.ID, msgNeedReference)
	}
}

func (b *Bot) handleReference(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	points, err := ParseCaption(msg.Caption)
	if err != nil {
		b.sendMessage(msg.Chat.ID, fmt.Sprintf(msgBadCaption, err))
		return
	}

	frame, err := b.downloadPhoto(ctx, msg)
	if err != nil {
		b.log.Warn("reference photo rejected", "chat", msg.Chat.ID, "err", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	region := entity.FullFrameRegion(frame.Width, frame.Height)
	if len(points) > 0 {
		region = entity.TopLeftNormalizedRegion(points, frame.Width, frame.Height)
	}

	count, err := b.tracking.Initialize(ctx, user.SessionID, frame, region)
	if err != nil {
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	b.transition(ctx, user, b.users.ReferenceAccepted)
	text := fmt.Sprintf("✅ Опорный кадр записан: %d особых точек в области.\nТеперь присылайте новые кадры.", count)
	if count < 4 {
		text += "\n⚠️ Точек слишком мало: трекинг будет возвращать единичную матрицу. Выберите более текстурированную область."
	}
	b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) handleFrame(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	frame, err := b.downloadPhoto(ctx, msg)
	if err != nil {
		b.log.Warn("frame rejected", "chat", msg.Chat.ID, "err", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	res, err := b.tracking.Track(ctx, user.SessionID, frame)
	if err != nil {
		b.sendMessage(msg.Chat.ID, msgNeedReference)
		return
	}
	b.sendMessage(msg.Chat.ID, formatResult(res))

	if !res.HasPose() {
		return
	}
	overlay, err := b.tracking.Overlay(ctx, user.SessionID, frame, res.Homography)
	if err != nil {
		b.log.Debug("overlay skipped", "chat", msg.Chat.ID, "err", err)
		return
	}
	data, err := b.codec.EncodeJPEG(overlay)
	if err != nil {
		b.log.Warn("encode overlay failed", "err", err)
		return
	}
	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileBytes{Name: "overlay.jpg", Bytes: data})
	if _, err := b.api.Send(photo); err != nil {
		b.log.Warn("send overlay failed", "chat", msg.Chat.ID, "err", err)
	}
}

// downloadPhoto скачивает фото максимального разрешения и декодирует его
func (b *Bot) downloadPhoto(ctx context.Context, msg *tgbotapi.Message) (entity.Frame, error) {
	photo := msg.Photo[len(msg.Photo)-1]

	url, err := b.api.GetFileDirectURL(photo.FileID)
	if err != nil {
		return entity.Frame{}, fmt.Errorf("get file: %w", err)
	}
	data, err := b.fetch(ctx, url)
	if err != nil {
		return entity.Frame{}, err
	}
	return b.codec.Decode(data)
}

// downloadURL скачивает файл из Telegram
func downloadURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// transition применяет переход состояния оператора из UserService
func (b *Bot) transition(ctx context.Context, user *entity.User, step func(ctx context.Context, userID, chatID int64) (*entity.User, error)) {
	updated, err := step(ctx, user.ID, user.ChatID)
	if err != nil {
		b.log.Error("save user state failed", "user", user.ID, "err", err)
		return
	}
	*user = *updated
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("send message failed", "chat", chatID, "err", err)
	}
}

func formatInfo(info entity.SessionInfo) string {
	if info.State != entity.SessionTracking {
		return "Опорный кадр не задан. Отправьте /track."
	}
	return fmt.Sprintf("📌 Сессия %s\nОпорный кадр %d×%d, особых точек: %d",
		info.ID, info.FrameWidth, info.FrameHeight, info.ReferenceFeatures)
}

var statusText = map[entity.TrackStatus]string{
	entity.StatusUninitialized:         "опорный кадр не задан",
	entity.StatusInsufficientReference: "в опорной области меньше 4 особых точек",
	entity.StatusInsufficientCurrent:   "в кадре меньше 4 особых точек",
	entity.StatusInsufficientMatches:   "недостаточно надёжных сопоставлений",
	entity.StatusEstimationFailed:      "не удалось оценить гомографию",
	entity.StatusInvalidFrame:          "кадр повреждён",
	entity.StatusFault:                 "внутренняя ошибка",
}

// formatResult текст ответа на кадр: гомография и диагностика
func formatResult(res entity.TrackResult) string {
	var sb strings.Builder
	if res.HasPose() {
		fmt.Fprintf(&sb, "🎯 Область найдена: %d сопоставлений, %d инлайеров\n", res.Matches, res.Inliers)
	} else {
		fmt.Fprintf(&sb, "🔍 Область не найдена (%s), единичная матрица\n", statusText[res.Status])
	}
	for _, row := range res.Homography.Rows() {
		fmt.Fprintf(&sb, "[%9.4f %9.4f %9.4f]\n", row[0], row[1], row[2])
	}
	return strings.TrimRight(sb.String(), "\n")
}
